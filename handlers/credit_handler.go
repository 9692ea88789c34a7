package handlers

import (
	"context"
	"log"
	"strings"

	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditHandler struct {
	ledger creditLedger
	cache  overviewCache
}

type creditLedger interface {
	Purchase(ctx context.Context, in services.PurchaseInput) ([]models.LedgerEntry, error)
	Bonus(ctx context.Context, in services.BonusInput) (*models.LedgerEntry, error)
	Refund(ctx context.Context, sessionID uuid.UUID) ([]models.LedgerEntry, error)
	Balance(ctx context.Context, holder models.Holder, classTypeID uuid.UUID) (models.CreditBalance, error)
	Overview(ctx context.Context, holder models.Holder) ([]models.CreditBalance, error)
	History(ctx context.Context, holder models.Holder, classTypeID *uuid.UUID) ([]models.LedgerEntry, error)
}

type overviewCache interface {
	Overview(holder models.Holder, load func() ([]models.CreditBalance, error)) ([]models.CreditBalance, error)
}

func NewCreditHandler(ledger *services.Ledger, cache *services.ReadModels) *CreditHandler {
	return &CreditHandler{ledger: ledger, cache: cache}
}

type purchaseRequest struct {
	HolderKind      string          `json:"holder_kind" validate:"required,oneof=family student"`
	HolderID        string          `json:"holder_id" validate:"required,uuid"`
	StudentID       string          `json:"student_id" validate:"omitempty,uuid"`
	ClassTypeID     string          `json:"class_type_id" validate:"required,uuid"`
	Quantity        int             `json:"quantity" validate:"gte=1"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type bonusRequest struct {
	HolderKind  string `json:"holder_kind" validate:"required,oneof=family student"`
	HolderID    string `json:"holder_id" validate:"required,uuid"`
	ClassTypeID string `json:"class_type_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
	Note        string `json:"note" validate:"max=500"`
}

const negativeBalanceWarning = "This balance is below zero. The ledger has been flagged for review."

func (h *CreditHandler) PurchaseCredits(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	var req purchaseRequest
	if err := parseBody(c, &req); err != nil {
		return RespondError(c, err)
	}

	holder := models.Holder{Kind: models.HolderKind(req.HolderKind), ID: uuid.MustParse(req.HolderID)}
	if !actor.CanPurchaseFor(holder) {
		return RespondError(c, services.PermissionDenied("Not allowed", "You cannot buy credits for this account."))
	}
	in := services.PurchaseInput{
		Holder:          holder,
		ClassTypeID:     uuid.MustParse(req.ClassTypeID),
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		RecordedBy:      actor.ID,
	}
	if req.StudentID != "" {
		student := uuid.MustParse(req.StudentID)
		in.StudentID = &student
	}

	entries, err := h.ledger.Purchase(c.UserContext(), in)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": entries})
}

func (h *CreditHandler) GrantBonus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	var req bonusRequest
	if err := parseBody(c, &req); err != nil {
		return RespondError(c, err)
	}

	entry, err := h.ledger.Bonus(c.UserContext(), services.BonusInput{
		Holder:      models.Holder{Kind: models.HolderKind(req.HolderKind), ID: uuid.MustParse(req.HolderID)},
		ClassTypeID: uuid.MustParse(req.ClassTypeID),
		Quantity:    req.Quantity,
		Note:        strings.TrimSpace(req.Note),
		RecordedBy:  actor.ID,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": entry})
}

func (h *CreditHandler) GetHistory(c *fiber.Ctx) error {
	holder, err := h.viewableHolder(c)
	if err != nil {
		return RespondError(c, err)
	}

	var classType *uuid.UUID
	if raw := c.Query("class_type_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return RespondError(c, services.Validation("Invalid class_type_id", "class_type_id must be a valid UUID."))
		}
		classType = &id
	}

	entries, err := h.ledger.History(c.UserContext(), holder, classType)
	if err != nil {
		return RespondError(c, err)
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return c.JSON(fiber.Map{"holder": holder, "entries": entries})
}

func (h *CreditHandler) GetOverview(c *fiber.Ctx) error {
	holder, err := h.viewableHolder(c)
	if err != nil {
		return RespondError(c, err)
	}

	ctx := c.UserContext()
	balances, err := h.cache.Overview(holder, func() ([]models.CreditBalance, error) {
		return h.ledger.Overview(ctx, holder)
	})
	if err != nil {
		return RespondError(c, err)
	}

	resp := fiber.Map{"holder": holder, "balances": balances}
	for _, b := range balances {
		if b.Negative() {
			resp["warning"] = negativeBalanceWarning
			break
		}
	}
	return c.JSON(resp)
}

func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	holder, err := h.viewableHolder(c)
	if err != nil {
		return RespondError(c, err)
	}
	classTypeID, err := uuidParam(c, "classTypeId")
	if err != nil {
		return RespondError(c, err)
	}

	balance, err := h.ledger.Balance(c.UserContext(), holder, classTypeID)
	if err != nil {
		return RespondError(c, err)
	}
	resp := fiber.Map{"balance": balance}
	if balance.Negative() {
		resp["warning"] = negativeBalanceWarning
	}
	return c.JSON(resp)
}

// RefundSession appends refunds for every unrefunded spend of a session.
// Running it for a session that never consumed credit changes nothing.
func (h *CreditHandler) RefundSession(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	sessionID, err := uuidParam(c, "sessionId")
	if err != nil {
		return RespondError(c, err)
	}

	refunds, err := h.ledger.Refund(c.UserContext(), sessionID)
	if err != nil {
		return RespondError(c, err)
	}
	if refunds == nil {
		refunds = []models.LedgerEntry{}
	}
	log.Printf("Admin %s requested refund for session %s: %d entr(ies) appended", actor.ID, sessionID, len(refunds))
	return c.JSON(fiber.Map{"status": "success", "refunds": refunds})
}

func (h *CreditHandler) viewableHolder(c *fiber.Ctx) (models.Holder, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return models.Holder{}, err
	}
	holder, err := holderParam(c)
	if err != nil {
		return models.Holder{}, err
	}
	if !actor.CanViewHolder(holder) {
		return models.Holder{}, services.PermissionDenied("Not allowed", "You cannot view credits for this account.")
	}
	return holder, nil
}
