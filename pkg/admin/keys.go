package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loochek/pgproxy/pkg/keystore"
)

// KeyInfo describes one encryption key. Key material never leaves the
// keystore.
type KeyInfo struct {
	ID          uint32    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	Retired     bool      `json:"retired"`
	Active      bool      `json:"active"`
}

// KeysResponse lists the key inventory.
type KeysResponse struct {
	Success bool      `json:"success"`
	Keys    []KeyInfo `json:"keys"`
}

// RotateResponse reports the newly created key.
type RotateResponse struct {
	Success bool    `json:"success"`
	Key     KeyInfo `json:"key"`
}

// handleListKeys handles GET /api/v1/keys.
func (s *Server) handleListKeys(c *gin.Context) {
	keys, err := s.store.Keys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key listing failed",
			Message: err.Error(),
		})
		return
	}

	activeID, ok := s.activeKeyID(keys)

	infos := make([]KeyInfo, len(keys))
	for i, key := range keys {
		infos[i] = KeyInfo{
			ID:          key.ID,
			Fingerprint: key.Fingerprint,
			CreatedAt:   key.CreatedAt,
			Retired:     key.Retired,
			Active:      ok && key.ID == activeID,
		}
	}

	c.JSON(http.StatusOK, KeysResponse{Success: true, Keys: infos})
}

// handleRotateKey handles POST /api/v1/keys. It creates a fresh key, makes
// it the sealing key and keeps the previous keys available for decryption.
func (s *Server) handleRotateKey(c *gin.Context) {
	key, err := s.store.CreateKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key creation failed",
			Message: err.Error(),
		})
		return
	}

	if err := s.proxy.ReloadKeys(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key reload failed",
			Message: err.Error(),
		})
		return
	}

	s.log.Info().Uint32("key", key.ID).Msg("key rotated")

	c.JSON(http.StatusOK, RotateResponse{
		Success: true,
		Key: KeyInfo{
			ID:          key.ID,
			Fingerprint: key.Fingerprint,
			CreatedAt:   key.CreatedAt,
			Active:      true,
		},
	})
}

// handleRetireKey handles POST /api/v1/keys/:id/retire. A retired key no
// longer seals new values but still opens existing ones.
func (s *Server) handleRetireKey(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid key id",
			Message: "Key id must be a number",
		})
		return
	}
	keyID := uint32(id)

	keys, err := s.store.Keys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key listing failed",
			Message: err.Error(),
		})
		return
	}

	// Sessions always need a sealing key, so the last live key cannot be
	// retired.
	remaining := 0
	for _, key := range keys {
		if !key.Retired && key.ID != keyID {
			remaining++
		}
	}
	if remaining == 0 {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Cannot retire key",
			Message: "At least one active key is required; rotate first",
		})
		return
	}

	if err := s.store.RetireKey(keyID); err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Key not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key retirement failed",
			Message: err.Error(),
		})
		return
	}

	if err := s.proxy.ReloadKeys(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Key reload failed",
			Message: err.Error(),
		})
		return
	}

	s.log.Info().Uint32("key", keyID).Msg("key retired")

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Key retired",
	})
}

func (s *Server) activeKeyID(keys []*keystore.Key) (uint32, bool) {
	for _, key := range keys {
		if !key.Retired {
			return key.ID, true
		}
	}
	return 0, false
}
