// This is a http type of reporter.
// It fetches data from the projector's read-model
// and publishes on the http routes.

package reporter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/autarklabs/tokenrequest-go/projector"
)

const (
	ROUTE_HELLO           = "/hello"
	ROUTE_SNAPSHOT        = "/snapshot"
	ROUTE_REQUESTS        = "/requests"
	ROUTE_REQUEST_BY_ID   = "/requests/:id"
	ROUTE_ACCEPTED_TOKENS = "/accepted-tokens"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	proj *projector.Projector
}

func NewHttpReporter(serverIP string, serverPort string, proj *projector.Projector) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		proj:       proj,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_SNAPSHOT, h.Snapshot)
	router.GET(ROUTE_REQUESTS, h.Requests)
	router.GET(ROUTE_REQUEST_BY_ID, h.RequestByID)
	router.GET(ROUTE_ACCEPTED_TOKENS, h.AcceptedTokens)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Publish the whole read-model, with read-time statuses applied.
func (h *HttpReporter) Snapshot(c *gin.Context) {
	snap := h.proj.Snapshot()
	snap.Requests = h.proj.DisplayedRequests()
	c.JSON(http.StatusOK, snap)
}

// Fetch request views from the projector.
// Optional ?status= filters on the displayed status (pending, approved,
// refunded, rejected, expired).
func (h *HttpReporter) Requests(c *gin.Context) {
	views := h.proj.DisplayedRequests()

	status := c.Query("status")
	if status != "" {
		filtered := make([]projector.RequestView, 0, len(views))
		for _, v := range views {
			if string(v.Status) == status {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (h *HttpReporter) RequestByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a decimal request id"})
		return
	}

	for _, v := range h.proj.DisplayedRequests() {
		if v.ID == id {
			c.JSON(http.StatusOK, gin.H{"data": v})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "No token request found"})
}

func (h *HttpReporter) AcceptedTokens(c *gin.Context) {
	snap := h.proj.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": snap.AcceptedTokens})
}
