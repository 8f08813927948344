// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// TodoDefaults are the attributes shown for todo records when --attrs does
// not say otherwise.
const TodoDefaults = "id,userId,title,completed"

var lengthRegex = regexp.MustCompile(`-?\d+`)

// Attr represents each of the keys to be included in the output. These are
// typically identified by the JSON attributes key, thus the name.
type Attr struct {
	// The JSON key to extract from each record.
	Key string
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool
	// The key to use in the output. This is also the column title when
	// output=text.
	OutputKey string
	// Transformation spec to apply to the output value.
	TransformSpec string
}

// Transform applies the case and length transformations named in
// TransformSpec. Only string values are transformed.
func (a *Attr) Transform(value interface{}) interface{} {
	result, ok := value.(string)
	if !ok {
		return value
	}

	// The last case transformation wins. A global spec is prepended to each
	// attr spec, so the attr's own spec carries more weight.
	// IOW...  --attrs '*::U,title::l' will be lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	if a.TransformSpec == "" {
		return result
	}

	// Same logic as above re: case. A more specific length transformation
	// overrides a global one.
	match := lengthRegex.FindAllString(a.TransformSpec, -1)
	if len(match) == 0 {
		return result
	}

	l, _ := strconv.Atoi(match[len(match)-1])
	abs := int(math.Abs(float64(l)))
	runes := []rune(result)
	if len(runes) <= abs {
		return result
	}

	if l < 0 {
		lr := max(abs/2-1, 0)
		return string(runes[:lr]) + ".." + string(runes[len(runes)-lr:])
	}
	return string(runes[:l])
}

type AttrList []Attr

// Return a string representation of the AttrList. This should match the
// format of the original --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each spec from the --attrs flag and adds it to the AttrList.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		jsonIdx = iota
		outputIdx
		transformIdx
	)

	// There are three : delimited fields in each spec. The first is the key to
	// extract from the JSON object. The second is the key to use in the
	// output. The third is the transformation spec to apply to the output
	// value. The latter two are optional. The output key will default to the
	// last section of the JSON key.
	specs := strings.Split(value, ",")
specloop:
	for _, spec := range specs {
		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")
		if len(fields) > transformIdx+1 {
			return fmt.Errorf("invalid attr spec %q: too many fields", spec)
		}

		// The first field is the key to extract from the JSON payload. If it
		// begins with a !, it is excluded from the output.
		attr.Key = strings.TrimSpace(fields[jsonIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		attr.Key = strings.TrimPrefix(attr.Key, ".")

		if attr.Key == "" {
			return fmt.Errorf("invalid attr spec %q: empty key", spec)
		}

		if attr.Key == "*" {
			attr.Include = false
		}

		// Fixup the output field. If there is only one field it is considered
		// the JSON extract key and the output key will become the last segment
		// of the . notation.
		if len(fields) == 1 || strings.TrimSpace(fields[outputIdx]) == "" {
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		} else {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// If the attr already exists in the list (because it's one of the
		// defaults or the user double-entered it) just apply the OutputKey,
		// Include and TransformSpec to the existing Attr.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				if len(fields) > outputIdx && strings.TrimSpace(fields[outputIdx]) != "" {
					(*a)[i].OutputKey = attr.OutputKey
				}
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec inserts a global transform spec into the front of all
// attrs in the list.
func (alist *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	// Find the global transform spec. If there is more than one, we're not
	// dealing with it and just taking the first.
	for a := range *alist {
		if (*alist)[a].Key == "*" {
			spec = (*alist)[a].TransformSpec
			break
		}
	}

	if spec == "" {
		return nil
	}

	for a := range *alist {
		(*alist)[a].TransformSpec = spec + "," + (*alist)[a].TransformSpec
	}

	return nil
}

func (a *AttrList) Type() string {
	return "list"
}

// Included returns the attrs that are rendered.
func (a AttrList) Included() AttrList {
	var out AttrList
	for _, attr := range a {
		if attr.Include && attr.Key != "*" {
			out = append(out, attr)
		}
	}
	return out
}

// Parse builds an AttrList from the defaults overlaid with spec.
func Parse(defaults string, spec string) (AttrList, error) {
	var list AttrList
	if err := list.Set(defaults); err != nil {
		return nil, err
	}
	if err := list.Set(spec); err != nil {
		return nil, err
	}
	if err := list.SetGlobalTransformSpec(); err != nil {
		return nil, err
	}
	return list, nil
}
