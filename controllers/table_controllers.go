package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/utils"
)

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

// StartSessionResponse mirrors what the ordering clients persist locally
// after joining, so field names follow their convention.
type StartSessionResponse struct {
	SessionID    string       `json:"sessionId"`
	SessionToken string       `json:"sessionToken"`
	IsOwner      bool         `json:"isOwner"`
	TableNumber  string       `json:"tableNumber"`
	UserName     string       `json:"userName"`
	TableID      uint         `json:"tableId"`
	UserID       string       `json:"userId"`
	Cart         *models.Cart `json:"cart,omitempty"`
}

type RosterEntry struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	IsOwner  bool      `json:"isOwner"`
	JoinedAt time.Time `json:"joinedAt"`
}

// StartSession -> joins a diner to the table's active session, creating the
// session (and its cart) when this is the first diner. The creator becomes
// owner; ownership never moves afterwards.
func (tc *TableController) StartSession(c *gin.Context) {
	var req struct {
		TableID  uint   `json:"tableId" binding:"required"`
		UserName string `json:"userName" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, req.TableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrTableNotFound)
		return
	}

	var (
		session     models.TableSession
		cart        models.Cart
		participant models.Participant
		isOwner     bool
	)

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("table_id = ? AND status = ?", table.ID, models.SessionActive).
			First(&session).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First diner at the table: create the session and its cart.
			isOwner = true
			cart = models.Cart{
				ID:       uuid.NewString(),
				TableID:  table.ID,
				IsActive: true,
			}
			session = models.TableSession{
				ID:      uuid.NewString(),
				TableID: table.ID,
				Status:  models.SessionActive,
				CartID:  cart.ID,
			}
			cart.SessionID = session.ID
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			if err := tx.Create(&cart).Error; err != nil {
				return err
			}
			table.Status = "occupied"
			if err := tx.Save(&table).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.First(&cart, "id = ?", session.CartID).Error; err != nil {
				return err
			}
		}

		participant = models.Participant{
			SessionID: session.ID,
			UserID:    uuid.NewString(),
			UserName:  req.UserName,
			IsOwner:   isOwner,
			JoinedAt:  time.Now(),
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	token, err := utils.GenerateSessionToken(session.ID, table.ID, cart.ID, participant.UserID, participant.UserName)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User %s joined table %s (session=%s owner=%v)",
		participant.UserName, table.TableNumber, session.ID, isOwner)

	utils.RespondJSON(c, http.StatusCreated, "Session joined", StartSessionResponse{
		SessionID:    session.ID,
		SessionToken: token,
		IsOwner:      isOwner,
		TableNumber:  table.TableNumber,
		UserName:     participant.UserName,
		TableID:      table.ID,
		UserID:       participant.UserID,
		Cart:         &cart,
	})
}

// GetTableUsers -> the authoritative roster for the table's active session,
// ordered by join time.
func (tc *TableController) GetTableUsers(c *gin.Context) {
	tableID := c.Param("table_id")

	var session models.TableSession
	if err := tc.DB.Where("table_id = ? AND status = ?", tableID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	var participants []models.Participant
	if err := tc.DB.Where("session_id = ?", session.ID).
		Order("joined_at asc").Find(&participants).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	roster := make([]RosterEntry, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, RosterEntry{
			UserID:   p.UserID,
			UserName: p.UserName,
			IsOwner:  p.IsOwner,
			JoinedAt: p.JoinedAt,
		})
	}

	utils.RespondJSON(c, http.StatusOK, "Table users", roster)
}

// LeaveSession -> removes a participant from the active session. Departure
// detection is explicit only; a vanished device simply stays on the roster.
func (tc *TableController) LeaveSession(c *gin.Context) {
	tableID := c.Param("table_id")
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var session models.TableSession
	if err := tc.DB.Where("table_id = ? AND status = ?", tableID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	result := tc.DB.Where("session_id = ? AND user_id = ?", session.ID, req.UserID).
		Delete(&models.Participant{})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, ErrParticipantMissing)
		return
	}

	utils.InfoLogger.Printf("User %s left session %s", req.UserID, session.ID)
	utils.RespondJSON(c, http.StatusOK, "Left session", gin.H{"userId": req.UserID})
}

// CreateTable -> adds a new physical table.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		Status      string `json:"status"` // optional, default "available"
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		TableNumber: req.TableNumber,
		Status:      "available",
	}
	if req.Status != "" {
		table.Status = req.Status
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %s (status=%s)", table.TableNumber, table.Status)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> lists every table.
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID -> detail for one table.
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrTableNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// DeleteTable -> removes a table; refuses while a session is active on it.
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table

	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrTableNotFound)
		return
	}

	var active int64
	tc.DB.Model(&models.TableSession{}).
		Where("table_id = ? AND status = ?", table.ID, models.SessionActive).
		Count(&active)
	if active > 0 {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("table %s has an active session", table.TableNumber))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}
