// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/staranto/todoq/internal/attrs"
	"github.com/staranto/todoq/internal/config"
)

// Options select how a dataset is filtered, ordered and rendered.
type Options struct {
	Output string
	Filter string
	Sort   string
	Find   string
	Titles bool
	Color  bool
}

// OptionsFromCommand reads Options from the global output flags.
func OptionsFromCommand(cmd *cli.Command) Options {
	return Options{
		Output: cmd.String("output"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
		Find:   cmd.String("find"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
	}
}

// Tag is one attribute discovered from a struct's json tags.
type Tag struct {
	Name     string
	Encoding string
}

// NewTag parses a json struct tag value. Holder, when set, prefixes the name
// to build a dotted attribute path.
func NewTag(holder string, s string) Tag {
	parts := strings.Split(s, ",")
	if parts[0] == "" || parts[0] == "-" {
		return Tag{}
	}

	tag := Tag{Name: parts[0]}
	if holder != "" {
		tag.Name = holder + "." + tag.Name
	}
	if len(parts) > 1 {
		tag.Encoding = parts[1]
	}
	return tag
}

// Print renders the tag into its display form.
func (t Tag) Print() string {
	return t.Name
}

const maxSchemaDepth = 1

// DumpSchemaWalker walks a struct type collecting its json tags.
func DumpSchemaWalker(holder string, typ reflect.Type, depth int) []Tag {
	tags := make([]Tag, 0)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		tagValue, ok := field.Tag.Lookup("json")
		if !ok {
			continue
		}

		tag := NewTag(holder, tagValue)
		if tag.Name == "" {
			continue
		}
		tags = append(tags, tag)

		if depth >= maxSchemaDepth {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			tags = append(tags, DumpSchemaWalker(tag.Name, ft, depth+1)...)
		}
	}

	return tags
}

// DumpSchema prints the sorted attribute names of typ.
func DumpSchema(w io.Writer, typ reflect.Type) {
	tags := DumpSchemaWalker("", typ, 0)
	if len(tags) == 0 {
		log.Debugf("no tags found for type: %s", typ.Name())
		return
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	fmt.Fprintln(w, "Schema for", typ.Name(), "--")
	for _, tag := range tags {
		fmt.Fprintln(w, tag.Print())
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Attributes that are available to the --attrs, --filter and --sort flags.")
}

// SliceDiceSpit filters, finds, transforms, sorts and renders the JSON array
// in raw according to opts.
func SliceDiceSpit(raw []byte, attrs attrs.AttrList, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	// If raw, just dump it and go home.
	if opts.Output == "raw" {
		_, err := w.Write(raw)
		return err
	}

	fullDataset := gjson.ParseBytes(raw)
	if !fullDataset.IsArray() {
		return fmt.Errorf("expected a JSON array, got %s", fullDataset.Type)
	}

	dataset := FilterDataset(fullDataset, attrs, opts.Filter)
	dataset = FindDataset(dataset, attrs, opts.Find)

	for _, row := range dataset {
		for _, attr := range attrs {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}

	SortDataset(dataset, opts.Sort)

	switch opts.Output {
	case "json":
		out, err := json.Marshal(project(dataset, attrs))
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(project(dataset, attrs))
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(dataset, attrs, opts, w)
		return nil
	}
}

// project drops the attrs that were only wanted for filtering and sorting.
func project(dataset []map[string]interface{}, attrs attrs.AttrList) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(dataset))
	for _, row := range dataset {
		p := make(map[string]interface{})
		for _, attr := range attrs.Included() {
			p[attr.OutputKey] = row[attr.OutputKey]
		}
		out = append(out, p)
	}
	return out
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []map[string]interface{},
	attrs attrs.AttrList,
	opts Options,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	included := attrs.Included()

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(included))
		for _, attr := range included {
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	pad, _ := config.GetInt("padding", 2)

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		headers := make([]string, 0, len(included))
		for _, attr := range included {
			headers = append(headers, attr.OutputKey)
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided for nil and empty strings.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	switch value := value.(type) {
	case nil:
		return emptyValue[0]
	case string:
		if value == "" {
			return emptyValue[0]
		}
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// Floats print without a fraction.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
