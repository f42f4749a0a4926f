// Package api exposes batch submission and status over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/dispatch"
	"github.com/yourorg/cc-corpus/internal/logging"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/types"
)

// BatchWorkflowName must match the name the worker registers.
const BatchWorkflowName = "BatchWorkflow"

type BatchHandler struct {
	temporalClient client.Client
	taskQueue      string
	logger         *zap.Logger
}

func NewBatchHandler(temporalClient client.Client, taskQueue string, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		temporalClient: temporalClient,
		taskQueue:      taskQueue,
		logger:         logging.OrNop(logger),
	}
}

// Register mounts the batch routes on g.
func (h *BatchHandler) Register(g *gin.RouterGroup) {
	g.POST("/batches", h.StartBatch)
	g.GET("/batches/:id", h.GetBatch)
}

type StartBatchRequest struct {
	Jobs       []types.JobSpec `json:"jobs" binding:"required,min=1"`
	Policy     string          `json:"policy"`
	PublishURI string          `json:"publish_uri"`
	Cleanup    bool            `json:"cleanup"`
}

type StartBatchResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// StartBatch validates the jobs and starts a BatchWorkflow for them.
func (h *BatchHandler) StartBatch(c *gin.Context) {
	var req StartBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := types.BatchParams{
		Jobs:       req.Jobs,
		Policy:     req.Policy,
		PublishURI: req.PublishURI,
		Cleanup:    req.Cleanup,
	}
	options := client.StartWorkflowOptions{
		ID:        "batch-" + uuid.NewString(),
		TaskQueue: h.taskQueue,
	}
	run, err := h.temporalClient.ExecuteWorkflow(c.Request.Context(), options, BatchWorkflowName, params)
	if err != nil {
		h.logger.Error("start batch", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start workflow: " + err.Error()})
		return
	}
	h.logger.Info("batch started", zap.String("workflow_id", run.GetID()), zap.Int("jobs", len(req.Jobs)))
	c.JSON(http.StatusAccepted, StartBatchResponse{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	})
}

func validate(req StartBatchRequest) error {
	if _, err := dispatch.ParsePolicy(req.Policy); err != nil {
		return err
	}
	urls := make([]string, len(req.Jobs))
	for i, j := range req.Jobs {
		if _, err := record.ParseURL(j.URL); err != nil {
			return err
		}
		urls[i] = j.URL
	}
	return dispatch.CheckDistinct(urls)
}

// GetBatch reports the status of a batch, and its result once closed.
func (h *BatchHandler) GetBatch(c *gin.Context) {
	workflowID := c.Param("id")
	if workflowID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workflow ID is required"})
		return
	}
	ctx := c.Request.Context()

	describe, err := h.temporalClient.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to describe workflow: " + err.Error()})
		return
	}
	info := describe.GetWorkflowExecutionInfo()
	body := gin.H{
		"workflow_id": workflowID,
		"status":      info.GetStatus().String(),
		"start_time":  info.GetStartTime().AsTime(),
	}
	if info.GetCloseTime() == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	// Closed: Get returns immediately with the result or the failure.
	var result types.BatchResult
	if err := h.temporalClient.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		body["error"] = err.Error()
	} else {
		body["result"] = result
	}
	c.JSON(http.StatusOK, body)
}
