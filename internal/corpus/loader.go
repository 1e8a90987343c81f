package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"examqa/internal/domain"
)

// record is the on-disk shape of one question-bank entry. Year is decoded
// loosely because older extractions stored it as a string.
type record struct {
	Question string            `json:"question"`
	Unit     string            `json:"unit"`
	Year     any               `json:"year"`
	Course   string            `json:"course"`
	Metadata map[string]string `json:"metadata"`
}

// Load parses a JSON question bank into a catalog. Entry order follows the
// file, and identifiers derive from the unit code plus the file position, so
// an identical source always produces an identical catalog. The vector index
// relies on this: vector positions are correlated back to entries by order.
func Load(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("reading question bank %s: %w", path, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorpusFormat, path, err)
	}

	catalog := make(domain.Catalog, 0, len(records))
	for i, r := range records {
		text := strings.TrimSpace(r.Question)
		unit := strings.TrimSpace(r.Unit)
		if text == "" {
			return nil, fmt.Errorf("%w: entry %d has no question text", domain.ErrCorpusFormat, i)
		}
		if unit == "" {
			return nil, fmt.Errorf("%w: entry %d has no unit code", domain.ErrCorpusFormat, i)
		}

		meta := r.Metadata
		if r.Course != "" {
			if meta == nil {
				meta = make(map[string]string, 1)
			}
			meta["course"] = r.Course
		}

		catalog = append(catalog, domain.CatalogEntry{
			ID:       fmt.Sprintf("%s#%d", strings.ToUpper(unit), i),
			Text:     text,
			Unit:     strings.ToUpper(unit),
			Year:     coerceYear(r.Year),
			Metadata: meta,
		})
	}
	return catalog, nil
}

// coerceYear accepts numeric or string years; anything unparseable counts as
// unknown rather than failing the whole load.
func coerceYear(v any) int {
	switch y := v.(type) {
	case float64:
		return int(y)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
