package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// MaxOrderRefLength - ограничение escrow-программы на длину ссылки на заказ.
const MaxOrderRefLength = 64

// ErrRejected означает, что шлюз окончательно отклонил запрос и повтор с тем же ключом не поможет.
var ErrRejected = errors.New("gateway: request rejected")

// Attestation - подтверждение шлюза, которое сохраняется как непрозрачное доказательство.
type Attestation struct {
	EscrowAddress   string
	TransactionHash string
	// Amount заполняется только при пополнении escrow.
	Amount decimal.NullDecimal
}

// FundRequest - параметры пополнения escrow.
type FundRequest struct {
	RequestKey string
	OrderRef   string
	Amount     decimal.Decimal
	Currency   string
	Deadline   time.Time
}

// LookupState - состояние запроса на стороне шлюза.
type LookupState string

const (
	LookupUnknown   LookupState = "unknown"
	LookupPending   LookupState = "pending"
	LookupConfirmed LookupState = "confirmed"
	LookupFailed    LookupState = "failed"
)

// LookupResult - ответ шлюза о ранее отправленном запросе.
type LookupResult struct {
	State       LookupState
	Attestation *Attestation
	Reason      string
}

// SettlementGateway - внешняя escrow-программа. Все вызовы идемпотентны по ключу запроса.
type SettlementGateway interface {
	Fund(ctx context.Context, req FundRequest) (*Attestation, error)
	Release(ctx context.Context, requestKey, escrowAddress string) (*Attestation, error)
	RefundOrSplit(ctx context.Context, requestKey, escrowAddress string, payerAmount, payeeAmount decimal.Decimal) (*Attestation, error)
	Dispute(ctx context.Context, requestKey, escrowAddress, reason string) (*Attestation, error)
	Lookup(ctx context.Context, requestKey string) (*LookupResult, error)
}

// RequestKey выводит ключ идемпотентности из платежа, перехода и его существенных параметров.
// Один и тот же переход с теми же параметрами всегда даёт один и тот же ключ.
func RequestKey(paymentID uuid.UUID, from, to string, params ...string) string {
	parts := append([]string{paymentID.String(), from, to}, params...)
	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// RetryKey выводит следующий ключ после запроса, который шлюз окончательно отклонил.
func RetryKey(previous string) string {
	sum := blake2b.Sum256([]byte(previous + "|retry"))
	return hex.EncodeToString(sum[:])
}

// OrderRef формирует ссылку на заказ для escrow-программы.
func OrderRef(kind string, id uuid.UUID) (string, error) {
	ref := fmt.Sprintf("%s:%s", kind, id)
	if len(ref) > MaxOrderRefLength {
		return "", fmt.Errorf("gateway: ссылка на заказ длиннее %d байт", MaxOrderRefLength)
	}
	return ref, nil
}
