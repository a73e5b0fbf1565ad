package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrovision/internal/app"
	"agrovision/internal/i18n"
	"agrovision/internal/transport/http/response"
)

const uploadField = "image"

type ImageHandler struct {
	imageService *app.ImageService
	res          *response.Responder
	log          *zap.Logger
}

type imageView struct {
	Filename   string
	DisplayURL string
}

func NewImageHandler(imageService *app.ImageService, res *response.Responder, log *zap.Logger) *ImageHandler {
	return &ImageHandler{imageService: imageService, res: res, log: log}
}

func (h *ImageHandler) UploadPage(c *gin.Context) {
	lang := response.Lang(c)
	h.res.Page(c, http.StatusOK, response.PageName(lang, "upload"), gin.H{"Page": "upload"})
}

func (h *ImageHandler) Upload(c *gin.Context) {
	lang := response.Lang(c)
	userID, _ := response.UserID(c)
	back := "/" + lang + "/upload"

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
		case h.emptyFilePart(c):
			h.res.Redirect(c, back, i18n.KeyNoFile, lang)
		default:
			h.res.Redirect(c, back, i18n.KeyNoImage, lang)
		}
		return
	}
	if fileHeader.Filename == "" {
		h.res.Redirect(c, back, i18n.KeyNoFile, lang)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error("open multipart file failed", zap.Error(err))
		h.res.Redirect(c, back, i18n.KeyUploadFailed, lang)
		return
	}
	defer file.Close()

	result, err := h.imageService.Upload(c.Request.Context(), app.UploadInput{
		UserID:   userID,
		Filename: fileHeader.Filename,
		File:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			h.res.Redirect(c, back, i18n.KeyNoFile, lang)
		case errors.Is(err, app.ErrFormat):
			h.res.Redirect(c, back, i18n.KeyWrongFormat, lang)
		case errors.Is(err, app.ErrInference):
			h.res.Redirect(c, back, i18n.KeyPredictionError, lang)
		default:
			h.log.Error("upload failed", zap.Uint("user_id", userID), zap.Error(err))
			h.res.Redirect(c, back, i18n.KeyUploadFailed, lang)
		}
		return
	}

	label := result.Prediction.Label
	if !result.Prediction.Recognized {
		label = i18n.Message(i18n.KeyUnrecognized, lang)
	}
	h.res.Page(c, http.StatusOK, response.PageName(lang, "upload"), gin.H{
		"Page":       "upload",
		"Filename":   result.Image.Filename,
		"DisplayURL": displayPath(result.Image.Filename),
		"Prediction": label,
		"Recognized": result.Prediction.Recognized,
		"Confidence": result.Prediction.Confidence,
	}, i18n.NewFlash(i18n.KeyUploadSuccess, lang))
}

// emptyFilePart reports whether the form carried the file field without a
// chosen file. Browsers send such a part with an empty filename, which the
// multipart reader files under values instead of files.
func (h *ImageHandler) emptyFilePart(c *gin.Context) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[uploadField]
	return ok
}

func (h *ImageHandler) MyImages(c *gin.Context) {
	lang := response.Lang(c)
	userID, _ := response.UserID(c)

	images, err := h.imageService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("list images failed", zap.Uint("user_id", userID), zap.Error(err))
		h.res.Error(c, http.StatusInternalServerError)
		return
	}

	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, imageView{Filename: img.Filename, DisplayURL: displayPath(img.Filename)})
	}
	h.res.Page(c, http.StatusOK, response.PageName(lang, "my_images"), gin.H{
		"Page":   "my_images",
		"Images": views,
	})
}

func (h *ImageHandler) Delete(c *gin.Context) {
	lang := response.Lang(c)
	userID, _ := response.UserID(c)

	err := h.imageService.Delete(c.Request.Context(), c.Param("filename"), userID)
	if err != nil {
		if errors.Is(err, app.ErrForbidden) {
			h.res.Error(c, http.StatusForbidden)
			return
		}
		h.log.Error("delete image failed", zap.Uint("user_id", userID), zap.Error(err))
		h.res.Error(c, http.StatusInternalServerError)
		return
	}

	h.res.Redirect(c, "/"+lang+"/my_images", i18n.KeyImageDeleted, lang)
}

func (h *ImageHandler) Display(c *gin.Context) {
	userID, _ := response.UserID(c)

	url, err := h.imageService.ResolveForDisplay(c.Request.Context(), c.Param("filename"), userID)
	if err != nil {
		if errors.Is(err, app.ErrForbidden) {
			h.res.Error(c, http.StatusForbidden)
			return
		}
		h.log.Error("resolve image failed", zap.Uint("user_id", userID), zap.Error(err))
		h.res.Error(c, http.StatusInternalServerError)
		return
	}

	c.Redirect(http.StatusMovedPermanently, url)
}

func displayPath(filename string) string {
	return "/display/" + filename
}
