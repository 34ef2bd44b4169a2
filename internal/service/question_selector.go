package service

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

// DefaultQuestionCount is the number of questions per session.
const DefaultQuestionCount = 20

// DefaultDifficultyMix is the percentage of questions per difficulty.
var DefaultDifficultyMix = map[models.Difficulty]int{
	models.DifficultyEasy:   40,
	models.DifficultyMedium: 40,
	models.DifficultyHard:   20,
}

type questionBank interface {
	ListActiveRefs(ctx context.Context, categories []string) ([]models.QuestionRef, error)
}

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// SelectorConfig tunes question selection.
type SelectorConfig struct {
	Count int
	Mix   map[models.Difficulty]int
}

// QuestionSelector picks the ordered question set for a new session.
type QuestionSelector struct {
	bank    questionBank
	cache   *PoolCache
	cfg     SelectorConfig
	shuffle ShuffleFunc
	logger  *zap.Logger
}

// SelectorOption customises the selector.
type SelectorOption func(*QuestionSelector)

// WithShuffle replaces the random permutation, mainly for tests.
func WithShuffle(fn ShuffleFunc) SelectorOption {
	return func(s *QuestionSelector) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// NewQuestionSelector constructs the selector.
func NewQuestionSelector(bank questionBank, cache *PoolCache, cfg SelectorConfig, logger *zap.Logger, opts ...SelectorOption) *QuestionSelector {
	if cfg.Count <= 0 {
		cfg.Count = DefaultQuestionCount
	}
	if len(cfg.Mix) == 0 {
		cfg.Mix = DefaultDifficultyMix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QuestionSelector{bank: bank, cache: cache, cfg: cfg, shuffle: rand.Shuffle, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Count returns the configured number of questions per session.
func (s *QuestionSelector) Count() int {
	return s.cfg.Count
}

// Select returns Count distinct question ids for specialization in presentation order.
func (s *QuestionSelector) Select(ctx context.Context, specialization string) ([]int64, error) {
	pool, err := s.pool(ctx, specialization)
	if err != nil {
		return nil, err
	}

	// Group by difficulty, specialization entries ahead of General ones.
	own := make(map[models.Difficulty][]int64)
	general := make(map[models.Difficulty][]int64)
	for _, ref := range pool {
		if ref.Category == specialization {
			own[ref.Difficulty] = append(own[ref.Difficulty], ref.ID)
		} else {
			general[ref.Difficulty] = append(general[ref.Difficulty], ref.ID)
		}
	}
	for _, d := range models.Difficulties {
		s.shuffleIDs(own[d])
		s.shuffleIDs(general[d])
	}

	taken := make(map[int64]struct{}, s.cfg.Count)
	selected := make([]int64, 0, s.cfg.Count)
	take := func(ids []int64, limit int) int {
		n := 0
		for _, id := range ids {
			if n >= limit || len(selected) >= s.cfg.Count {
				break
			}
			if _, dup := taken[id]; dup {
				continue
			}
			taken[id] = struct{}{}
			selected = append(selected, id)
			n++
		}
		return n
	}

	targets := bucketTargets(s.cfg.Count, s.cfg.Mix)
	for _, d := range models.Difficulties {
		want := targets[d]
		got := take(own[d], want)
		take(general[d], want-got)
	}

	if len(selected) < s.cfg.Count {
		var rest, restGeneral []int64
		for _, d := range models.Difficulties {
			rest = append(rest, own[d]...)
			restGeneral = append(restGeneral, general[d]...)
		}
		s.shuffleIDs(rest)
		s.shuffleIDs(restGeneral)
		take(rest, s.cfg.Count)
		take(restGeneral, s.cfg.Count)
	}

	if len(selected) < s.cfg.Count {
		s.logger.Error("question bank cannot satisfy selection",
			zap.String("specialization", specialization),
			zap.Int("required", s.cfg.Count),
			zap.Int("available", len(selected)))
		return nil, appErrors.WithMeta(appErrors.ErrInsufficientQuestions, map[string]interface{}{
			"required":  s.cfg.Count,
			"available": len(selected),
		})
	}

	s.shuffleIDs(selected)
	return selected, nil
}

func (s *QuestionSelector) pool(ctx context.Context, specialization string) ([]models.QuestionRef, error) {
	if cached, ok := s.cache.Lookup(ctx, specialization); ok {
		return cached, nil
	}

	categories := []string{models.GeneralCategory}
	if specialization != models.GeneralCategory {
		categories = append(categories, specialization)
	}
	refs, err := s.bank.ListActiveRefs(ctx, categories)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question bank")
	}
	s.cache.Remember(ctx, specialization, refs)
	return refs, nil
}

func (s *QuestionSelector) shuffleIDs(ids []int64) {
	if len(ids) < 2 {
		return
	}
	s.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// bucketTargets splits count across difficulties by mix. Every bucket but the
// last present one is rounded; the last takes the remainder. Unknown labels
// in mix are ignored.
func bucketTargets(count int, mix map[models.Difficulty]int) map[models.Difficulty]int {
	present := make([]models.Difficulty, 0, len(mix))
	total := 0
	for _, d := range models.Difficulties {
		if pct := mix[d]; pct > 0 {
			present = append(present, d)
			total += pct
		}
	}
	targets := make(map[models.Difficulty]int, len(present))
	if total == 0 {
		return targets
	}
	assigned := 0
	for i, d := range present {
		if i == len(present)-1 {
			targets[d] = count - assigned
			break
		}
		n := int(math.Round(float64(count) * float64(mix[d]) / float64(total)))
		if assigned+n > count {
			n = count - assigned
		}
		targets[d] = n
		assigned += n
	}
	return targets
}
