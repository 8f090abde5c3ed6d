package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleList(c *gin.Context) {
	list, err := s.deps.Classes.List(c.Request.Context(), auth.Owner(c), c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (s *Server) handleNew(c *gin.Context) {
	class, err := s.deps.Classes.NewClass(auth.Owner(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, class)
}

func (s *Server) handleGet(c *gin.Context) {
	class, err := s.deps.Classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, class)
}

func (s *Server) handleSave(c *gin.Context) {
	var class core.Class
	if err := c.ShouldBindJSON(&class); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	id := c.Param("id")
	if class.ID == "" {
		class.ID = id
	}
	if class.ID != id {
		s.writeError(c, core.NewValidationError(core.CodeInvalidField, "class id does not match the path",
			core.FieldError{Field: "id", Error: "must equal " + id}))
		return
	}

	stored, err := s.deps.Classes.Save(c.Request.Context(), auth.Owner(c), class)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, stored)
}

func (s *Server) handleDelete(c *gin.Context) {
	removed, err := s.deps.Classes.Delete(c.Request.Context(), auth.Owner(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !removed {
		fail(c, http.StatusNotFound, "class not found", nil)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleValidate(c *gin.Context) {
	var class core.Class
	if err := c.ShouldBindJSON(&class); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.deps.Classes.Validate(class); err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"valid": true})
}

func (s *Server) handleCommand(c *gin.Context) {
	var cmd dispatcher.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	class, err := s.deps.Dispatcher.Dispatch(cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, class)
}

func (s *Server) handleCommandList(c *gin.Context) {
	ok(c, http.StatusOK, s.deps.Dispatcher.Commands())
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.deps.Media == nil {
		fail(c, http.StatusServiceUnavailable, "media store is not configured", nil)
		return
	}
	if limit := s.deps.Config.MaxUploadBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "file too large", gin.H{"limit": tooLarge.Limit})
			return
		}
		fail(c, http.StatusBadRequest, "missing file", err.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.writeError(c, err)
		return
	}

	asset, err := s.deps.Media.Store(c.Request.Context(), data, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.deps.LogManager.Logger().Info("File uploaded", "owner", auth.Owner(c), "asset", asset.Name, "size", asset.Size)
	ok(c, http.StatusCreated, asset)
}

func (s *Server) handleQRCode(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.deps.Classes.Get(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "size must be an integer", nil)
			return
		}
		size = n
	}

	png, err := s.deps.Classes.QRCode(id, size)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("X-Experience-URL", s.deps.Classes.ExperienceURL(id))
	c.Data(http.StatusOK, "image/png", png)
}
