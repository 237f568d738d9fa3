package changelog

import (
	"context"
	"errors"

	"github.com/syahfalah4787/wishlist-bug/internal/storage"
	"github.com/syahfalah4787/wishlist-bug/internal/types"
)

// Sentinel texts returned in place of a changelog when the store cannot be used.
const (
	ConfigErrorText = "Changelog unavailable: item store is not configured"
	QueryErrorText  = "Changelog unavailable: failed to load finished items"
)

// Source supplies done items, newest first.
type Source interface {
	ListDoneItems(ctx context.Context) ([]types.Item, error)
}

// Outcome classifies how a Fetch went.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeConfigError
	OutcomeQueryError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeConfigError:
		return "config_error"
	case OutcomeQueryError:
		return "query_error"
	}
	return "unknown"
}

// Failed reports whether the outcome came from a store failure.
func (o Outcome) Failed() bool {
	return o == OutcomeConfigError || o == OutcomeQueryError
}

// Result is the outcome of loading and rendering the changelog.
// Report is always usable: failures carry a sentinel text and zero counts.
type Result struct {
	Report  Report
	Outcome Outcome
	Err     error
}

// Fetch loads done items from src and builds the changelog.
// A nil src or a *storage.ConfigError yields OutcomeConfigError; any other
// error yields OutcomeQueryError.
func Fetch(ctx context.Context, src Source) Result {
	if src == nil {
		return Result{
			Report:  Report{Text: ConfigErrorText},
			Outcome: OutcomeConfigError,
			Err:     &storage.ConfigError{Err: errors.New("no item store")},
		}
	}

	items, err := src.ListDoneItems(ctx)
	if err != nil {
		var cfgErr *storage.ConfigError
		if errors.As(err, &cfgErr) {
			return Result{Report: Report{Text: ConfigErrorText}, Outcome: OutcomeConfigError, Err: err}
		}
		return Result{Report: Report{Text: QueryErrorText}, Outcome: OutcomeQueryError, Err: err}
	}

	report := Build(items)
	if report.Counts.Total() == 0 {
		return Result{Report: report, Outcome: OutcomeEmpty}
	}
	return Result{Report: report, Outcome: OutcomeOK}
}
