package diary

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/logging"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/provider"
)

// EraPre2022 is the catch-all era for everything before the first per-year era.
const EraPre2022 = "pre-2022"

const (
	firstEraYear = 2022
	lastEraYear  = 2025
	noRecord     = "No record."
)

// EraKeys lists every era in chronological order.
var EraKeys = []string{EraPre2022, "2022", "2023", "2024", "2025"}

// ErrNoBiography is returned by Ensure when knowledge is incomplete and there is no
// biography to bootstrap it from.
var ErrNoBiography = errors.New("no biography text to bootstrap background knowledge")

// BackgroundKnowledge maps an era key to a short biographical summary of that era.
type BackgroundKnowledge map[string]string

// Complete reports whether every era is present and non-blank.
func (k BackgroundKnowledge) Complete() bool {
	for _, era := range EraKeys {
		if strings.TrimSpace(k[era]) == "" {
			return false
		}
	}
	return true
}

// Query returns the knowledge a writer on date could have: the pre-2022 era plus every
// yearly era up to and including date's year. Later eras are never included. An
// unparseable date yields only the pre-2022 era.
func (k BackgroundKnowledge) Query(date string) string {
	var lines []string
	if v := strings.TrimSpace(k[EraPre2022]); v != "" {
		lines = append(lines, "Before 2022: "+v)
	}

	target, err := strconv.Atoi(yearOf(date))
	if err != nil || !validDate(date) {
		return strings.Join(lines, "\n")
	}
	for y := firstEraYear; y <= min(target, lastEraYear); y++ {
		key := strconv.Itoa(y)
		if v := strings.TrimSpace(k[key]); v != "" {
			lines = append(lines, key+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

type eraBreakdown struct {
	Pre2022  string `json:"pre_2022" jsonschema_description:"Everything up to and including 2021, 1-2 sentences"`
	Year2022 string `json:"year_2022" jsonschema_description:"What happened in 2022, 1-2 sentences"`
	Year2023 string `json:"year_2023" jsonschema_description:"What happened in 2023, 1-2 sentences"`
	Year2024 string `json:"year_2024" jsonschema_description:"What happened in 2024, 1-2 sentences"`
	Year2025 string `json:"year_2025" jsonschema_description:"What happened in 2025, 1-2 sentences"`
}

var eraBreakdownSchema = provider.GenerateSchema[eraBreakdown]()

func (e eraBreakdown) knowledge() BackgroundKnowledge {
	k := BackgroundKnowledge{
		EraPre2022: e.Pre2022,
		"2022":     e.Year2022,
		"2023":     e.Year2023,
		"2024":     e.Year2024,
		"2025":     e.Year2025,
	}
	for era, v := range k {
		v = strings.TrimSpace(v)
		if v == "" {
			v = noRecord
		}
		k[era] = v
	}
	return k
}

// KnowledgeStore owns the run's background knowledge and bootstraps it once when the
// configured block is incomplete.
type KnowledgeStore struct {
	client   provider.Client
	composer Composer
	save     func(BackgroundKnowledge) error
	logger   *logging.Logger
	current  BackgroundKnowledge
}

// NewKnowledgeStore wraps the configured knowledge. save persists a bootstrapped block and
// may be nil.
func NewKnowledgeStore(client provider.Client, composer Composer, current BackgroundKnowledge, save func(BackgroundKnowledge) error, logger *logging.Logger) *KnowledgeStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &KnowledgeStore{client: client, composer: composer, save: save, logger: logger, current: current}
}

// Current returns the knowledge as it stands.
func (s *KnowledgeStore) Current() BackgroundKnowledge { return s.current }

// Ensure returns complete knowledge without any request when the configured block is
// complete. Otherwise it asks the client to split biography into the five eras, persists
// the result, and returns it. A persistence failure is logged; the knowledge is still used.
func (s *KnowledgeStore) Ensure(ctx context.Context, biography string) (BackgroundKnowledge, error) {
	if s.current.Complete() {
		return s.current, nil
	}
	if strings.TrimSpace(biography) == "" {
		return s.current, ErrNoBiography
	}
	if s.client == nil {
		return s.current, errors.New("KnowledgeStore.Ensure: client is nil")
	}

	s.logger.Info("background knowledge incomplete; bootstrapping from biography")
	resp, err := s.client.Generate(ctx, s.composer.ComposeBootstrap(biography))
	if err != nil {
		return s.current, fmt.Errorf("KnowledgeStore.Ensure: %w", err)
	}
	var out eraBreakdown
	if err := fileutils.DecodeModelJSON(resp.Text, &out); err != nil {
		return s.current, fmt.Errorf("KnowledgeStore.Ensure: decode eras: %w (model_output_prefix=%q)", err, fileutils.Truncate(resp.Text, 300))
	}

	k := out.knowledge()
	s.current = k
	if s.save != nil {
		if err := s.save(k); err != nil {
			s.logger.Warn("could not persist background knowledge: %v", err)
		} else {
			s.logger.Info("background knowledge saved")
		}
	}
	return k, nil
}
