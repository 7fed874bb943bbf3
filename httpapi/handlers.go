// Package httpapi wires the facade's domain operations onto the gin HTTP
// surface: admin create/delete/list under /admin/{bucket}/..., and public
// fetch under the configurable base path.
package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lust-img/lust/facade"
	"github.com/lust-img/lust/log"
	"github.com/lust-img/lust/storage"
)

// Server wires a facade.Router onto gin routes.
type Server struct {
	router          *facade.Router
	baseServingPath string
}

// NewServer builds a Server. baseServingPath is the configurable prefix for
// public fetch routes (default "/images").
func NewServer(router *facade.Router, baseServingPath string) *Server {
	if baseServingPath == "" {
		baseServingPath = "/images"
	}
	return &Server{router: router, baseServingPath: baseServingPath}
}

// Register attaches every route this server exposes onto engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.Use(log.GinMiddleware(log.L()))

	admin := engine.Group("/admin/:bucket")
	admin.POST("/create", s.handleUpload)
	admin.DELETE("/delete/:image_id", s.handleDelete)
	admin.POST("/list", s.handleList)

	engine.GET(s.baseServingPath+"/:bucket/:image_id", s.handleFetch)
}

type createRequest struct {
	Format string `json:"format" binding:"required"`
	Data   string `json:"data" binding:"required"`
}

func (s *Server) handleUpload(c *gin.Context) {
	bucketSlug := c.Param("bucket")

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := s.router.Upload(c.Request.Context(), bucketSlug, facade.UploadRequest{Format: req.Format, Data: req.Data})
	if err != nil {
		fail(c, err)
		return
	}

	success(c, 201, gin.H{"image_id": result.ImageID, "variants": result.Variants})
}

func (s *Server) handleDelete(c *gin.Context) {
	bucketSlug := c.Param("bucket")

	imageID, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		badRequest(c, "malformed image_id")
		return
	}

	if err := s.router.Delete(c.Request.Context(), bucketSlug, imageID); err != nil {
		fail(c, err)
		return
	}
	success(c, 200, gin.H{"deleted": imageID})
}

type listFilter struct {
	FilterType string `json:"filter_type"`
	WithValue  string `json:"with_value"`
}

type listRequest struct {
	Page   string     `json:"page"`
	Filter listFilter `json:"filter"`
	// Order is accepted for ABI compatibility; non-Scylla backends always
	// order lexicographically and Scylla always orders by creation time,
	// so this field does not currently change behavior.
	Order string `json:"order"`
}

func (s *Server) handleList(c *gin.Context) {
	bucketSlug := c.Param("bucket")

	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	filter := storage.Filter{Kind: storage.FilterAll}
	if req.Filter.FilterType == string(storage.FilterByCreationDate) {
		filter.Kind = storage.FilterByCreationDate
		if t, err := time.Parse(time.RFC3339, req.Filter.WithValue); err == nil {
			filter.From = t
		}
	}

	page, err := s.router.List(c.Request.Context(), bucketSlug, facade.ListRequest{Page: req.Page, Filter: filter})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, 200, gin.H{"items": page.Items, "next_page": page.NextPage})
}

func (s *Server) handleFetch(c *gin.Context) {
	bucketSlug := c.Param("bucket")

	imageID, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		badRequest(c, "malformed image_id")
		return
	}

	req := facade.FetchRequest{
		Preset: c.Query("size"),
		Format: c.Query("format"),
		Base64: c.Query("encode") == "true",
	}
	if w := c.Query("width"); w != "" {
		req.Width, _ = strconv.Atoi(w)
	}
	if h := c.Query("height"); h != "" {
		req.Height, _ = strconv.Atoi(h)
	}

	result, err := s.router.Fetch(c.Request.Context(), bucketSlug, imageID, req)
	if err != nil {
		fail(c, err)
		return
	}

	if req.Base64 {
		success(c, 200, gin.H{"data": result.Data, "format": result.Format})
		return
	}
	c.Data(200, contentTypeFor(result.Format), result.Data)
}

func contentTypeFor(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
