package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/web/common"
	"github.com/gin-gonic/gin"
)

type FileSummary struct {
	File string `json:"file"`
	ingest.Summary
}

// Import enqueues the punches of every uploaded export. Files go in the
// "files" form field, CSV or xlsx.
func (ep *TransactionEndpoint) Import(c *gin.Context) {
	// Parse multipart form (max 50 MB)
	if err := c.Request.ParseMultipartForm(50 << 20); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	files := c.Request.MultipartForm.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("no files uploaded"))
		return
	}

	summaries := []FileSummary{}
	imported := 0
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			summaries = append(summaries, FileSummary{File: file.Filename, Summary: ingest.Summary{
				Errors: []ingest.RowError{{Err: "unsupported file type " + ext}},
			}})
			continue
		}

		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
		summary, err := ep.importer.Import(c.Request.Context(), ep.queue, f, file.Filename)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(fmt.Sprintf("%s: %v", file.Filename, err)))
			return
		}
		imported += summary.Imported
		summaries = append(summaries, FileSummary{File: file.Filename, Summary: summary})
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"message": fmt.Sprintf("%d punches imported", imported),
		"files":   summaries,
	}))
}
