package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tile-engine/internal/game"
	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"

	"github.com/go-chi/chi/v5"
)

var (
	errUnknownCode   = errors.New("unknown cell code")
	errMissingTarget = errors.New("target or cell is required")
	errMissingGoal   = errors.New("cell is required")
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	rows := h.engine.Grid()
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}

	writeJSON(w, map[string]interface{}{
		"width":   width,
		"height":  len(rows),
		"metrics": h.engine.Stats().Metrics,
		"cells":   rows,
	})
}

type cellResponse struct {
	X         int                  `json:"x"`
	Y         int                  `json:"y"`
	Code      int                  `json:"code"`
	Kind      collision.EffectKind `json:"kind"`
	Modifier  collision.Modifier   `json:"modifier"`
	Occupants []string             `json:"occupants"`
}

func (h *routerHandlers) handleGetCell(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		writeError(w, "x and y must be integers", http.StatusBadRequest)
		return
	}

	// Lookups clamp to the layer edge
	code := h.engine.Cell(x, y)
	writeJSON(w, cellResponse{
		X:         x,
		Y:         y,
		Code:      code,
		Kind:      collision.KindOf(code),
		Modifier:  collision.ModifierFor(code),
		Occupants: h.engine.Occupants(spatial.Point{X: x, Y: y}),
	})
}

func (h *routerHandlers) handleEditCell(w http.ResponseWriter, r *http.Request) {
	var req game.CellEdit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !collision.IsKnown(req.Code) {
		writeError(w, errUnknownCode.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.QueueEdit(req.X, req.Y, req.Code); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]interface{}{"queued": true, "edit": req})
}

func (h *routerHandlers) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [4]int
	for i, key := range []string{"fx", "fy", "tx", "ty"} {
		v, err := strconv.Atoi(q.Get(key))
		if err != nil {
			writeError(w, "fx, fy, tx and ty must be integers", http.StatusBadRequest)
			return
		}
		coords[i] = v
	}

	from := spatial.Point{X: coords[0], Y: coords[1]}
	to := spatial.Point{X: coords[2], Y: coords[3]}
	path, err := h.engine.Route(from, to)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"from":  from,
		"to":    to,
		"steps": len(path) - 1,
		"path":  path,
	})
}

type spawnRequest struct {
	Name string         `json:"name"`
	X    *float64       `json:"x"`
	Y    *float64       `json:"y"`
	Cell *spatial.Point `json:"cell"`
	W    float64        `json:"w"`
	H    float64        `json:"h"`
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		writeError(w, "x and y must be given together", http.StatusBadRequest)
		return
	}

	opts := game.SpawnOptions{
		Name: req.Name,
		Size: spatial.Vec2{X: req.W, Y: req.H},
	}
	if req.X != nil {
		opts.Position = &spatial.Vec2{X: *req.X, Y: *req.Y}
	}
	if req.Cell != nil {
		opts.Cell = *req.Cell
	}

	id, err := h.engine.Spawn(opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	ent, _ := h.engine.Entity(id)
	writeJSONStatus(w, http.StatusCreated, ent)
}

func (h *routerHandlers) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	ent, ok := h.engine.Entity(chi.URLParam(r, "id"))
	if !ok {
		writeEngineError(w, game.ErrUnknownEntity)
		return
	}
	writeJSON(w, ent)
}

func (h *routerHandlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Remove(chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type steerRequest struct {
	Target *spatial.Vec2  `json:"target"`
	Cell   *spatial.Point `json:"cell"`
	Thrust bool           `json:"thrust"`
}

func (h *routerHandlers) handleSteer(w http.ResponseWriter, r *http.Request) {
	var req steerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch {
	case req.Cell != nil:
		err = h.engine.SteerToCell(id, *req.Cell, req.Thrust)
	case req.Target != nil:
		err = h.engine.Steer(id, *req.Target, req.Thrust)
	default:
		writeError(w, errMissingTarget.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

type navigateRequest struct {
	Cell   *spatial.Point `json:"cell"`
	Thrust bool           `json:"thrust"`
}

func (h *routerHandlers) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Cell == nil {
		writeError(w, errMissingGoal.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engine.Navigate(chi.URLParam(r, "id"), *req.Cell, req.Thrust); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{"success": true, "goal": req.Cell})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeEngineError maps engine sentinel errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrOutOfBounds), errors.Is(err, game.ErrInvalidSize):
		code = http.StatusBadRequest
	case errors.Is(err, game.ErrUnknownEntity), errors.Is(err, game.ErrNoRoute):
		code = http.StatusNotFound
	case errors.Is(err, game.ErrEntityLimit):
		code = http.StatusServiceUnavailable
	case errors.Is(err, game.ErrEditQueueFull):
		code = http.StatusTooManyRequests
	}
	writeError(w, err.Error(), code)
}
