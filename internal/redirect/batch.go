package redirect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/throttle"
)

// ResolveAll resolves every distinct URL in uris through the throttle and
// returns a map from each input URL to its resolved form. Duplicates are
// collapsed before dispatch so each URL is requested once per batch. URLs
// whose resolution fails or times out map to themselves.
func ResolveAll(ctx context.Context, r Resolver, th *throttle.Throttle, uris []string, log *zap.Logger) (map[string]string, error) {
	resolved := make(map[string]string, len(uris))
	var unique []string
	for _, u := range uris {
		if u == "" {
			continue
		}
		if _, ok := resolved[u]; ok {
			continue
		}
		resolved[u] = u
		unique = append(unique, u)
	}
	if len(unique) == 0 {
		return resolved, nil
	}

	batchID := uuid.New().String()
	log = log.With(zap.String("batch_id", batchID))
	log.Info("redirect: resolving batch",
		zap.Int("urls", len(unique)),
		zap.Int("duplicates", len(uris)-len(unique)),
	)

	tasks := make([]throttle.Task[string], len(unique))
	for i, u := range unique {
		tasks[i] = func(ctx context.Context) (string, error) {
			return r.Resolve(ctx, u), nil
		}
	}

	start := time.Now()
	results, err := throttle.RunAll(ctx, th, tasks, "")
	if err != nil {
		return nil, err
	}

	changed := 0
	for i, u := range unique {
		if results[i] == "" {
			continue
		}
		if results[i] != u {
			changed++
		}
		resolved[u] = results[i]
	}

	log.Info("redirect: batch resolved",
		zap.Int("urls", len(unique)),
		zap.Int("redirected", changed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resolved, nil
}
