package rest

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/gin-gonic/gin"
)

const attachmentsField = "attachments"

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// bindAsset reads the asset fields and the uploaded files of a multipart
// or JSON request. The returned closer releases the opened files.
func (s *Server) bindAsset(c *gin.Context) (services.AssetInput, []services.Upload, func(), bool) {
	var in services.AssetInput
	noop := func() {}

	if err := c.ShouldBind(&in); err != nil {
		bindFailed(c, err, "Invalid request body")
		return in, nil, noop, false
	}

	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return in, nil, noop, true
		}
		bindFailed(c, err, "Invalid multipart form")
		return in, nil, noop, false
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	uploads := make([]services.Upload, 0, len(form.File[attachmentsField]))
	for _, fh := range form.File[attachmentsField] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			badRequest(c, "Could not read "+fh.Filename)
			return in, nil, noop, false
		}
		opened = append(opened, f)
		uploads = append(uploads, services.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	return in, uploads, closeAll, true
}

func (s *Server) listAssets(c *gin.Context) {
	list, err := s.assets.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := s.assets.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) publicAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := s.assets.PublicView(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) createAsset(c *gin.Context) {
	in, uploads, closeAll, ok := s.bindAsset(c)
	if !ok {
		return
	}
	defer closeAll()

	a, err := s.assets.Create(c.Request.Context(), in, uploads)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) updateAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	in, uploads, closeAll, ok := s.bindAsset(c)
	if !ok {
		return
	}
	defer closeAll()

	a, err := s.assets.Update(c.Request.Context(), id, in, uploads)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.assets.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted"})
}

func (s *Server) deleteAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}
	if err := s.assets.DeleteAttachment(c.Request.Context(), id, attachmentID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted"})
}

func (s *Server) assetQRCode(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	png, err := s.assets.QRCode(c.Request.Context(), id, c.Query("size"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
