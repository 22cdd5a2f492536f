package handler

import (
	"net/http"

	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/rest/render"
	restTypes "github.com/wheresmywater/backend/internal/rest/types"
)

// Health reports that the server is accepting requests.
func Health(w http.ResponseWriter, _ bunrouter.Request) error {
	return render.JSON(w, http.StatusOK, restTypes.HealthResponse{Success: true})
}
