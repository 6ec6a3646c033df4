package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/pkg/logctx"
	"github.com/promofunnel/pixpay/pkg/tool"
	types "github.com/promofunnel/pixpay/pkg/types"
)

var (
	// ErrDuplicateTransaction: order_id or transaction_id already exists.
	ErrDuplicateTransaction = errors.New("transaction already exists")
	// ErrTransactionNotFound is a lookup miss, not a store failure.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrStoreUnavailable wraps persistence failures. Callers treat it as
	// non-fatal and continue best-effort.
	ErrStoreUnavailable = errors.New("transaction store unavailable")
)

// Store owns the persisted transaction record. Gateway clients and webhook
// parsers never touch rows directly.
type Store interface {
	Create(ctx context.Context, txn *models.Transaction) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID string, status types.TransactionStatus, paidAt *time.Time) error
	// MarkConversionSent flips utmify_sent false->true atomically and
	// reports whether this caller won the flip.
	MarkConversionSent(ctx context.Context, transactionID string) (bool, error)
	ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanResponse, error)
}

type ScanRequest struct {
	Status   types.TransactionStatus `json:"status,omitempty"`
	Provider types.PaymentProvider   `json:"provider,omitempty"`
	// CreatedBefore bounds the scan to rows older than the given instant.
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	From          int        `json:"from"`
	Size          int        `json:"size"`
	SortBy        string     `json:"sort_by"`
	SortOrder     string     `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &Service{db: db, log: log}
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx surfaces unique violations by SQLSTATE in the message.
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

func (s *Service) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = tool.GenerateUUIDV7()
	}
	if txn.Status == "" {
		txn.Status = types.TransactionStatusWaitingPayment
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		if isDuplicateErr(err) {
			return fmt.Errorf("%w: order %s", ErrDuplicateTransaction, txn.OrderID)
		}
		logctx.FromCtx(ctx, s.log).Errorw("transaction create failed", "order_id", txn.OrderID, "err", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	return s.getBy(ctx, "order_id", orderID)
}

func (s *Service) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.getBy(ctx, "transaction_id", transactionID)
}

func (s *Service) getBy(ctx context.Context, column, value string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).Where(column+" = ?", value).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		logctx.FromCtx(ctx, s.log).Errorw("transaction lookup failed", column, value, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &txn, nil
}

// UpdateStatus is idempotent: re-applying the same status only touches
// updated_at, and paid_at is never cleared once set.
func (s *Service) UpdateStatus(ctx context.Context, transactionID string, status types.TransactionStatus, paidAt *time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status: %s", status)
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == types.TransactionStatusPaid {
		when := time.Now()
		if paidAt != nil {
			when = *paidAt
		}
		// COALESCE keeps the first observed paid time.
		updates["paid_at"] = gorm.Expr("COALESCE(paid_at, ?)", when)
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(updates)
	if res.Error != nil {
		logctx.FromCtx(ctx, s.log).Errorw("status update failed", "transaction_id", transactionID, "err", res.Error)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (s *Service) MarkConversionSent(ctx context.Context, transactionID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND utmify_sent = ?", transactionID, false).
		Update("utmify_sent", true)
	if res.Error != nil {
		logctx.FromCtx(ctx, s.log).Errorw("mark conversion sent failed", "transaction_id", transactionID, "err", res.Error)
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ScanTransactions implements the paginated admin listing.
func (s *Service) ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if req.Status != "" {
		tx = tx.Where("status = ?", req.Status)
	}
	if req.Provider != "" {
		tx = tx.Where("provider_id = ?", req.Provider)
	}
	if req.CreatedBefore != nil {
		tx = tx.Where("created_at < ?", *req.CreatedBefore)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}

	var rows []*models.Transaction
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanResponse{Items: rows, Total: total}, nil
}
