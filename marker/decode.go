package marker

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"
	"github.com/kaptinlin/jsonrepair"
)

// Decode decodes the marker record of one runtime trace line. Lines that were
// truncated or mangled by a log pipeline are repaired before giving up.
func Decode(line string) (Record, error) {
	loc := kindPattern.FindStringIndex(line)
	if loc == nil {
		return nil, errors.NotFoundf("marker in line %q", line)
	}
	kind, _ := Match(line)

	literal := line[loc[0]:]
	if end := strings.LastIndex(literal, "}"); end >= 0 {
		literal = literal[:end+1]
	}

	var r Record
	switch kind {
	case KindStart:
		r = &Start{}
	case KindNodeStart:
		r = &NodeStart{}
	case KindNodeEnd:
		r = &NodeEnd{}
	case KindNodeError:
		r = &NodeError{}
	case KindEnd:
		r = &End{}
	}

	if err := json.Unmarshal([]byte(literal), r); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(literal)
		if repairErr != nil {
			return nil, errors.Annotatef(err, "decode %s marker, repair failed: %v", kind, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), r); err != nil {
			return nil, errors.Annotatef(err, "decode repaired %s marker", kind)
		}
	}
	return r, nil
}

// DecodeAll decodes every marker line of a trace, skipping other lines.
func DecodeAll(text string) ([]Record, error) {
	records := make([]Record, 0)
	for i, line := range Lines(text) {
		if _, ok := Match(line); !ok {
			continue
		}
		r, err := Decode(line)
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", i+1)
		}
		records = append(records, r)
	}
	return records, nil
}
