package quest

import "github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"

// RandomSource yields uniform integers in [0, n). *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// SelectDaily shuffles a copy of templates (Fisher–Yates) and snapshots the first
// min(n, len(templates)) into fresh instances. Ids are unique as long as the
// template ids are; the same seed yields the same result.
func SelectDaily(templates []domain.QuestTemplate, n int, rnd RandomSource) []domain.QuestInstance {
	if n <= 0 || len(templates) == 0 {
		return []domain.QuestInstance{}
	}

	pool := make([]domain.QuestTemplate, len(templates))
	copy(pool, templates)
	shuffle(pool, rnd)

	if n > len(pool) {
		n = len(pool)
	}
	out := make([]domain.QuestInstance, 0, n)
	for _, t := range pool[:n] {
		out = append(out, t.NewInstance())
	}
	return out
}

// DrawReplacement picks one template uniformly among those whose id is not in
// exclude. Returns false when every template is excluded.
func DrawReplacement(templates []domain.QuestTemplate, exclude map[string]bool, rnd RandomSource) (domain.QuestInstance, bool) {
	candidates := make([]domain.QuestTemplate, 0, len(templates))
	for _, t := range templates {
		if !exclude[t.ID] {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return domain.QuestInstance{}, false
	}
	return candidates[rnd.IntN(len(candidates))].NewInstance(), true
}

func shuffle(pool []domain.QuestTemplate, rnd RandomSource) {
	for i := len(pool) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
}
