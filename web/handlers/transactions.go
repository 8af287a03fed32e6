package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/queue"
	"axiapac.com/punchsync/report"
	"axiapac.com/punchsync/utils"
	"axiapac.com/punchsync/web/common"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TransactionEndpoint struct {
	queue    *queue.Queue
	importer *ingest.Importer
}

func NewTransactionEndpoint(q *queue.Queue, importer *ingest.Importer) *TransactionEndpoint {
	return &TransactionEndpoint{queue: q, importer: importer}
}

type SearchParams struct {
	From       *common.DateOnly   `json:"from"`
	To         *common.DateOnly   `json:"to"`
	Status     *core.UploadStatus `json:"status"`
	EmployeeID string             `json:"employeeId"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

func (p SearchParams) match(tx core.Transaction) bool {
	if p.Status != nil && tx.UploadStatus != *p.Status {
		return false
	}
	if p.EmployeeID != "" && !strings.EqualFold(tx.EmployeeID, p.EmployeeID) {
		return false
	}
	if p.From == nil && p.To == nil {
		return true
	}
	ts, err := utils.ParseISOTime(tx.Timestamp)
	if err != nil {
		return false
	}
	return common.InRange(*ts, p.From, p.To)
}

func (ep *TransactionEndpoint) search(c *gin.Context, params SearchParams) {
	if params.Status != nil && !params.Status.Valid() {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(fmt.Sprintf("unknown status %q", *params.Status)))
		return
	}

	txs, err := ep.queue.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	txs = utils.Filter(txs, params.match)

	total := len(txs)
	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}
	offset := min(max(params.Offset, 0), total)
	end := min(offset+limit, total)

	c.JSON(http.StatusOK, common.NewSearchResponse(txs[offset:end], int64(total), limit, offset))
}

// List returns the queue newest first, filtered by the status and
// employeeId query parameters.
func (ep *TransactionEndpoint) List(c *gin.Context) {
	params := SearchParams{EmployeeID: c.Query("employeeId")}
	if s := c.Query("status"); s != "" {
		status := core.UploadStatus(s)
		params.Status = &status
	}
	if val, err := strconv.Atoi(c.Query("limit")); err == nil {
		params.Limit = val
	}
	if val, err := strconv.Atoi(c.Query("offset")); err == nil {
		params.Offset = val
	}
	ep.search(c, params)
}

func (ep *TransactionEndpoint) Search(c *gin.Context) {
	var params SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	ep.search(c, params)
}

func (ep *TransactionEndpoint) Enqueue(c *gin.Context) {
	var punch core.Punch
	if err := c.ShouldBindJSON(&punch); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if punch.SourceLabel == "" {
		punch.SourceLabel = "manual"
	}

	tx, err := ep.queue.Enqueue(c.Request.Context(), punch)
	if errors.Is(err, core.ErrEvictedOnArrival) {
		c.JSON(http.StatusConflict, common.NewErrorResponse(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(tx))
}

func (ep *TransactionEndpoint) Clear(c *gin.Context) {
	if err := ep.queue.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *TransactionEndpoint) Stats(c *gin.Context) {
	stats, err := ep.queue.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
}

type StatusUpdate struct {
	IDs    []string          `json:"ids" binding:"required,min=1"`
	Status core.UploadStatus `json:"status" binding:"required"`
}

// UpdateStatus marks records by hand, e.g. ones the ERP already has.
func (ep *TransactionEndpoint) UpdateStatus(c *gin.Context) {
	var update StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	changed, err := ep.queue.UpdateStatus(c.Request.Context(), update.IDs, update.Status)
	if errors.Is(err, core.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, common.NewErrorResponse(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"changed": changed}))
}

func (ep *TransactionEndpoint) Export(c *gin.Context) {
	txs, err := ep.queue.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteTransactions(&buf, txs); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Events streams queue changes as server-sent events until the client goes
// away. A "ready" event is sent once the subscription is in place.
func (ep *TransactionEndpoint) Events(c *gin.Context) {
	events := make(chan queue.Event, 16)
	unsubscribe := ep.queue.Subscribe(func(e queue.Event) {
		select {
		case events <- e:
		default:
			// dropped while the reader is behind
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("ready", gin.H{})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e := <-events:
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}
