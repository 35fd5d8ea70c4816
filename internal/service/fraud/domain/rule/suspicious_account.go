// internal/service/fraud/domain/rule/suspicious_account.go
package rule

import (
	"fmt"

	"antifraud/internal/service/fraud/domain"

	"github.com/google/cel-go/cel"
)

// SuspiciousAccount 用一条配置下发的 CEL 断言评估账户级信号。
// 把具体断言做成表达式而不是写死的谓词，换一条规则只需要改配置，
// 不用动聚合器和流水线。
//
// 表达式可用变量：
//   - rejected_count     账户历史上被拒绝的发票数
//   - invoice_count      账户历史发票总数
//   - account_age_hours  账龄（小时，以快照时刻为基准；无历史时为 0）
//   - amount_cents       本次发票金额（分）
type SuspiciousAccount struct {
	expr    string
	program cel.Program
}

func NewSuspiciousAccount(cfg Config) (*SuspiciousAccount, error) {
	env, err := cel.NewEnv(
		cel.Variable("rejected_count", cel.IntType),
		cel.Variable("invoice_count", cel.IntType),
		cel.Variable("account_age_hours", cel.DoubleType),
		cel.Variable("amount_cents", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("build cel environment: %w", err)
	}

	ast, iss := env.Compile(cfg.SuspiciousAccountExpression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile suspicious account expression %q: %w", cfg.SuspiciousAccountExpression, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("suspicious account expression %q must evaluate to bool, got %s", cfg.SuspiciousAccountExpression, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("plan suspicious account expression: %w", err)
	}

	return &SuspiciousAccount{expr: cfg.SuspiciousAccountExpression, program: prg}, nil
}

func (r *SuspiciousAccount) Name() string { return "suspicious-account" }

func (r *SuspiciousAccount) Evaluate(ev *domain.InvoiceEvent, hist *domain.AccountHistory) (domain.Verdict, error) {
	var ageHours float64
	if !hist.FirstSeenAt.IsZero() {
		// 以快照时刻为基准，保证同一快照下评估结果可复现
		ageHours = hist.AsOf.Sub(hist.FirstSeenAt).Hours()
	}

	out, _, err := r.program.Eval(map[string]any{
		"rejected_count":    int64(hist.RejectedCount),
		"invoice_count":     int64(hist.InvoiceCount),
		"account_age_hours": ageHours,
		"amount_cents":      ev.AmountCents,
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("evaluate suspicious account expression: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return domain.Verdict{}, fmt.Errorf("suspicious account expression returned %T, want bool", out.Value())
	}
	if !matched {
		return domain.Verdict{}, nil
	}

	return domain.Verdict{
		HasFraud:    true,
		Reason:      domain.ReasonSuspiciousAccount,
		Description: fmt.Sprintf("account matched predicate %q", r.expr),
	}, nil
}
