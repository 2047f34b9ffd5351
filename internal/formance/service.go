package formance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Notifier.
var _ store.Notifier = (*Service)(nil)

const defaultPrecision int32 = 6

// Service journals custody events into a Formance Stack ledger.
type Service struct {
	client    *v3.Formance
	ledger    string
	precision map[string]int32 // asset id -> decimals
}

// NewService creates a Formance-backed journal.
// It connects to the stack, creates the ledger if it doesn't already exist, and returns ready to use.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "custody-capital"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName, precision: map[string]int32{}}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "custody-capital",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// WithAssetPrecision returns a copy sharing the client and ledger that
// uses precision to map asset ids to decimals.
func (s *Service) WithAssetPrecision(precision map[string]int32) *Service {
	return &Service{client: s.client, ledger: s.ledger, precision: precision}
}

// ---------- helpers ----------

func (s *Service) precisionFor(assetId string) int32 {
	if p, ok := s.precision[assetId]; ok {
		return p
	}
	return defaultPrecision
}

// formanceAsset returns the Formance UMN notation for an asset id,
// e.g. "usdc.near" with 6 decimals becomes "USDCNEAR/6".
func formanceAsset(assetId string, precision int32) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(assetId) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if code == "" || code[0] < 'A' || code[0] > 'Z' {
		code = "X" + code
	}
	if len(code) > 17 {
		code = code[:17]
	}
	return fmt.Sprintf("%s/%d", code, precision)
}

// accountSegment makes an account id safe for use in a Formance address.
func accountSegment(account string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, account)
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
