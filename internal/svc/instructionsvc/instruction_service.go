// Package instructionsvc stores the current system instruction and the log of
// every accepted update.
package instructionsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/record"
)

// InstructionConfig contains configuration parameters for the instruction service.
type InstructionConfig struct {
	// CurrentFilename is the plain text document holding the current instruction
	CurrentFilename string `env:"CURRENT_FILENAME" default:"system_instruction.txt"`

	// HistoryFilename is the JSON document holding the update log
	HistoryFilename string `env:"HISTORY_FILENAME" default:"instruction_history.json"`

	// RecordResetInHistory appends an entry to the log when resetting to the default
	RecordResetInHistory bool `env:"RECORD_RESET_IN_HISTORY" default:"false"`
}

// InstructionService manages the current system instruction and its history.
type InstructionService struct {
	current record.Store[string]
	history record.Store[[]domain.InstructionHistoryEntry]
	cfg     InstructionConfig
	log     logging.Logger
	now     func() time.Time
}

// NewFileInstructionService creates an InstructionService on files in the data directory.
func NewFileInstructionService(dataCfg record.FileStoreConfig, cfg InstructionConfig) *InstructionService {
	return NewInstructionService(
		record.NewFileStore(dataCfg, cfg.CurrentFilename, record.TextCodec{}, domain.DefaultInstruction),
		record.NewFileStore(dataCfg, cfg.HistoryFilename,
			record.JSONCodec[[]domain.InstructionHistoryEntry]{}, []domain.InstructionHistoryEntry{}),
		cfg,
	)
}

// NewInstructionService creates an InstructionService on the given stores.
func NewInstructionService(
	current record.Store[string],
	history record.Store[[]domain.InstructionHistoryEntry],
	cfg InstructionConfig,
) *InstructionService {
	return &InstructionService{
		current: current,
		history: history,
		cfg:     cfg,
		log:     logging.GetLogger("svc.instructionsvc.instruction_service"),
		now:     time.Now,
	}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *InstructionService) WithClock(now func() time.Time) *InstructionService {
	clone := *s
	clone.now = now

	return &clone
}

// GetCurrent returns the current instruction, creating both documents with
// their defaults on first access. An emptied document is restored to the default.
func (s *InstructionService) GetCurrent(ctx context.Context) (string, error) {
	if err := s.history.Ensure(ctx); err != nil {
		return "", fmt.Errorf("ensure history: %w", err)
	}

	text, err := s.current.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read instruction: %w", err)
	}

	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	err = s.current.Update(ctx, func(current *string) error {
		if strings.TrimSpace(*current) == "" {
			s.log.WarnContext(ctx, "empty instruction restored to default")
			*current = domain.DefaultInstruction
		}

		text = *current

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("restore instruction: %w", err)
	}

	return text, nil
}

// SetCurrent replaces the current instruction and appends it to the history.
// Blank text is rejected with domain.ErrMissingInstruction and changes nothing.
func (s *InstructionService) SetCurrent(ctx context.Context, text string) (err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "set instruction failed", "error", err)
		} else {
			s.log.InfoContext(ctx, "instruction updated", "length", len(text))
		}
	}()

	if strings.TrimSpace(text) == "" {
		return domain.ErrMissingInstruction
	}

	return s.write(ctx, text, true)
}

// GetHistory returns every recorded update, oldest first.
func (s *InstructionService) GetHistory(ctx context.Context) ([]domain.InstructionHistoryEntry, error) {
	history, err := s.history.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	return history, nil
}

// ResetToDefault restores the built-in instruction. The reset is logged in the
// history only when configured to.
func (s *InstructionService) ResetToDefault(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "reset instruction failed", "error", err)
		} else {
			s.log.InfoContext(ctx, "instruction reset to default")
		}
	}()

	return s.write(ctx, domain.DefaultInstruction, s.cfg.RecordResetInHistory)
}

func (s *InstructionService) write(ctx context.Context, text string, appendHistory bool) error {
	if err := s.current.WriteAll(ctx, text); err != nil {
		return fmt.Errorf("write instruction: %w", err)
	}

	if !appendHistory {
		return nil
	}

	entry := domain.InstructionHistoryEntry{Timestamp: s.now().UTC(), Instruction: text}

	err := s.history.Update(ctx, func(history *[]domain.InstructionHistoryEntry) error {
		*history = append(*history, entry)

		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}
