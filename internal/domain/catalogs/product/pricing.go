package product

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/types"
	"retailpos/pkg/logger"
)

// PriceRule reduces the base price by PercentOff while Condition holds.
//
// Condition is a CEL expression over:
//
//	hour     int    local hour of the sale, 0-23
//	weekday  int    0 = Sunday
//	sku      string
//	category string
//
// Example: `hour >= 17 && hour < 19 && category == "bakery"`.
type PriceRule struct {
	Name       string          `json:"name"`
	Condition  string          `json:"condition"`
	PercentOff decimal.Decimal `json:"percentOff"`
}

// PriceRules is stored as a JSON array.
type PriceRules []PriceRule

func (r PriceRule) validate() *apperror.AppError {
	if strings.TrimSpace(r.Condition) == "" {
		return apperror.NewValidation("pricing rule condition is required").WithDetail("field", "condition")
	}
	if !r.PercentOff.IsPositive() || r.PercentOff.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("pricing rule percentOff must be in (0, 100]").WithDetail("field", "percentOff")
	}
	return nil
}

// PricingEngine compiles rule conditions once and evaluates them per sale.
type PricingEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewPricingEngine builds the CEL environment for price rules.
func NewPricingEngine() (*PricingEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("sku", cel.StringType),
		cel.Variable("category", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &PricingEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Check compiles every rule of p. Used before a product is saved.
func (e *PricingEngine) Check(p *Product) error {
	for i, rule := range p.PricingRules {
		if _, err := e.program(rule.Condition); err != nil {
			return apperror.NewValidation(fmt.Sprintf("pricing rule %q: %v", rule.Name, err)).
				WithDetail("rule_index", i)
		}
	}
	return nil
}

// EffectivePrice returns the base price reduced by the first rule that matches at.
// A rule that fails to evaluate is skipped.
func (e *PricingEngine) EffectivePrice(ctx context.Context, p *Product, at time.Time) types.Money {
	if len(p.PricingRules) == 0 {
		return p.Price
	}

	vars := map[string]any{
		"hour":     int64(at.Hour()),
		"weekday":  int64(at.Weekday()),
		"sku":      p.SKU,
		"category": p.Category,
	}

	for _, rule := range p.PricingRules {
		prg, err := e.program(rule.Condition)
		if err != nil {
			logger.Warn(ctx, "pricing rule does not compile", "product_id", p.ID, "rule", rule.Name, "error", err)
			continue
		}
		out, _, err := prg.Eval(vars)
		if err != nil {
			logger.Warn(ctx, "pricing rule evaluation failed", "product_id", p.ID, "rule", rule.Name, "error", err)
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return p.Price.Sub(types.Percent(p.Price, rule.PercentOff))
		}
	}
	return p.Price
}

func (e *PricingEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
