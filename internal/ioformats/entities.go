package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"provenance-enricher/internal/models"
)

// Input columns recognised by name (case-insensitive). Every other column
// is carried through as an attribute.
var (
	idColumns      = []string{"id", "entity_id", "place_id"}
	websiteColumns = []string{"website", "url"}
	nameColumns    = []string{"name"}
	addressColumns = []string{"formatted_address", "address"}
	typesColumns   = []string{"types"}
)

// ReadEntities reads entities from a CSV file with a header row or from
// NDJSON. If the extension is unknown, CSV is tried first.
func ReadEntities(path string) ([]models.Entity, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return readCSV(path)
	case ".ndjson", ".jsonl":
		return readNDJSON(path)
	default:
		if ents, err := readCSV(path); err == nil && len(ents) > 0 {
			return ents, nil
		}
		return readNDJSON(path)
	}
}

func readCSV(path string) ([]models.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if columnIndex(header, websiteColumns) == -1 && columnIndex(header, idColumns) == -1 {
		return nil, errors.New("csv must contain an id or website header column")
	}

	out := make([]models.Entity, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				fields[h] = row[i]
			}
		}
		out = append(out, entityFromFields(len(out), fields, nil))
	}
	return out, nil
}

func readNDJSON(path string) ([]models.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.Entity
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(line), &obj); err == nil {
				fields := make(map[string]string, len(obj))
				var types []string
				for k, v := range obj {
					if matchesAny(k, typesColumns) {
						types = typesValue(v)
						continue
					}
					fields[k] = stringValue(v)
				}
				out = append(out, entityFromFields(len(out), fields, types))
				continue
			}
		}
		// a bare line is a website
		out = append(out, models.Entity{Row: len(out), ID: strconv.Itoa(len(out)), Website: line})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no entities found in ndjson")
	}
	return out, nil
}

// entityFromFields maps raw fields onto an entity. Known columns are
// resolved in priority order; types, when non-nil, overrides the types
// field.
func entityFromFields(row int, fields map[string]string, types []string) models.Entity {
	used := make(map[string]bool, len(fields))
	pick := func(names []string) string {
		for _, n := range names {
			for k, v := range fields {
				if !used[k] && strings.EqualFold(strings.TrimSpace(k), n) {
					used[k] = true
					return strings.TrimSpace(v)
				}
			}
		}
		return ""
	}

	ent := models.Entity{
		Row:     row,
		ID:      pick(idColumns),
		Website: pick(websiteColumns),
		Name:    pick(nameColumns),
		Address: pick(addressColumns),
		Types:   ParseTypes(pick(typesColumns)),
	}
	if types != nil {
		ent.Types = types
	}
	for k, v := range fields {
		if used[k] {
			continue
		}
		if ent.Attributes == nil {
			ent.Attributes = make(map[string]string)
		}
		ent.Attributes[k] = strings.TrimSpace(v)
	}
	if ent.ID == "" {
		ent.ID = strconv.Itoa(row)
	}
	return ent
}

func matchesAny(key string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(key), n) {
			return true
		}
	}
	return false
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		if matchesAny(h, names) {
			return i
		}
	}
	return -1
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func typesValue(v any) []string {
	switch x := v.(type) {
	case string:
		return ParseTypes(x)
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return []string{}
}

// ParseTypes reads a list of type tags written as "['a', 'b']", "a,b" or
// "a|b". Anything else yields an empty list.
func ParseTypes(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AttributeKeys returns the sorted union of attribute names.
func AttributeKeys(entities []models.Entity) []string {
	set := make(map[string]struct{})
	for _, e := range entities {
		for k := range e.Attributes {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
