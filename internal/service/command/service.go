package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/tablegate/internal/domain"
)

// RuleStore is the subset of rule persistence the command service
// needs. Commands only list and create; edits go through the admin API.
type RuleStore interface {
	ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error)
	CreateRule(ctx context.Context, rule domain.CapacityRule) (domain.CapacityRule, error)
}

// Limiter throttles command execution per operator.
type Limiter interface {
	Allow(ctx context.Context, id string) (bool, int64, time.Duration, error)
}

type Service struct {
	rules   RuleStore
	limiter Limiter
	logger  *slog.Logger
	clock   func() time.Time
}

func New(rules RuleStore, limiter Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		rules:   rules,
		limiter: limiter,
		logger:  logger,
		clock:   time.Now,
	}
}

const (
	msgUnknownCommand = "未対応のコマンドです。\n\n" + usageText
	msgThrottled      = "コマンドの実行が多すぎます。少し待ってからもう一度お試しください。"
	msgBackendError   = "システムエラーが発生しました。しばらくしてからもう一度お試しください。"
	msgNoRules        = "現在、制限ルールは設定されていません。"

	usageText = "利用可能なコマンド:\n" +
		"/limits ... 制限ルール一覧\n" +
		"/limit today 20 ... 今日の予約を20件まで制限\n" +
		"/limit sat,sun lunch 5/h ... 週末ランチを1時間5件まで\n" +
		"/stop today 18:00- ... 今日18時以降予約停止"
)

// Apply runs one operator command against a store's rule set. It never
// returns an error: every failure mode becomes a CommandResult the
// caller can hand straight back to the operator.
func (s *Service) Apply(ctx context.Context, storeID, operatorID, text string) domain.CommandResult {
	const op = "command.Service.Apply"

	if s.limiter != nil {
		allowed, _, _, err := s.limiter.Allow(ctx, operatorID)
		if err != nil {
			s.logger.Warn("command limiter unavailable, admitting command",
				slog.String("op", op), slog.String("error", err.Error()))
		} else if !allowed {
			return domain.CommandResult{Success: false, Message: msgThrottled}
		}
	}

	parsed, err := Parse(text, s.clock())
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return domain.CommandResult{Success: false, Message: fmt.Sprintf("⚠️ コマンドエラー: %s", verr)}
		}
		return domain.CommandResult{Success: false, Message: msgUnknownCommand}
	}

	switch parsed.Kind {
	case KindList:
		return s.listRules(ctx, storeID)
	case KindCreate:
		return s.createRule(ctx, storeID, *parsed.Rule)
	default:
		return domain.CommandResult{Success: false, Message: msgUnknownCommand}
	}
}

func (s *Service) listRules(ctx context.Context, storeID string) domain.CommandResult {
	const op = "command.Service.listRules"

	rules, err := s.rules.ListActiveRules(ctx, storeID)
	if err != nil {
		s.logger.Error("list rules failed", slog.String("op", op), slog.String("error", err.Error()))
		return domain.CommandResult{Success: false, Message: msgBackendError}
	}

	if len(rules) == 0 {
		return domain.CommandResult{Success: true, Message: msgNoRules + "\n\n" + usageText}
	}

	var b strings.Builder
	b.WriteString("📋 現在の制限ルール:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "\n%d. %s\n   ID: #%s 🟢\n", i+1, r.Description, r.ID)
	}
	b.WriteString("\n" + usageText)

	return domain.CommandResult{Success: true, Message: b.String()}
}

func (s *Service) createRule(ctx context.Context, storeID string, rule domain.CapacityRule) domain.CommandResult {
	const op = "command.Service.createRule"

	rule.ID = uuid.NewString()
	rule.StoreID = storeID
	rule.CreatedAt = s.clock()

	if err := rule.Validate(); err != nil {
		return domain.CommandResult{Success: false, Message: fmt.Sprintf("⚠️ コマンドエラー: %s", err)}
	}

	created, err := s.rules.CreateRule(ctx, rule)
	if err != nil {
		s.logger.Error("create rule failed", slog.String("op", op), slog.String("error", err.Error()))
		return domain.CommandResult{Success: false, Message: msgBackendError}
	}

	return domain.CommandResult{
		Success: true,
		Message: fmt.Sprintf("✅ 制限ルールを設定しました:\n%s", created.Description),
		Rule:    &created,
	}
}
