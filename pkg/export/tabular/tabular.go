// Package tabular flattens annotations into one row per annotation, and
// writes them as CSV, TSV, or a condensed JSON array.
package tabular

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/iox"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

type Encoder struct {
	format export.Format
}

func New(format export.Format) (*Encoder, error) {
	switch format {
	case export.FormatCSV, export.FormatTSV, export.FormatJSONMin:
		return &Encoder{format: format}, nil
	}
	return nil, fmt.Errorf("Not a tabular format: %v", format)
}

// Register adds CSV, TSV and JSON_MIN to r
func Register(r *export.Registry) error {
	for _, f := range []export.Format{export.FormatCSV, export.FormatTSV, export.FormatJSONMin} {
		e, _ := New(f)
		if err := r.Register(e); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) Name() export.Format {
	return e.format
}

// Filename is the name of the output file inside the output directory
func (e *Encoder) Filename() string {
	switch e.format {
	case export.FormatCSV:
		return "result.csv"
	case export.FormatTSV:
		return "result.tsv"
	}
	return "result.json"
}

func (e *Encoder) Encode(ctx context.Context, run *export.Run, tasks []task.Task, outDir string) error {
	log := logs.NewPrefixLogger(run.Log, string(e.format)+":")
	records := []*Record{}
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		records = append(records, TaskRecords(run.Config, &tasks[i])...)
	}

	dst := filepath.Join(outDir, e.Filename())
	var err error
	if e.format == export.FormatJSONMin {
		err = iox.WriteFileAtomic(dst, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		})
	} else {
		delim := ','
		if e.format == export.FormatTSV {
			delim = '\t'
		}
		err = iox.WriteFileAtomic(dst, func(w io.Writer) error {
			return writeDelimited(w, delim, records)
		})
	}
	if err != nil {
		return err
	}
	log.Infof("Wrote %v records to %v", len(records), dst)
	return nil
}

func writeDelimited(w io.Writer, delim rune, records []*Record) error {
	cols := Columns(records)
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = cellString(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// cellString renders scalars as text, and everything else as embedded JSON
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return export.FormatFloat(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// TaskRecords returns one record per annotation that was not cancelled
func TaskRecords(cfg *labelconfig.ConfigModel, t *task.Task) []*Record {
	chatKeys := map[string]bool{}
	for _, in := range cfg.Inputs() {
		if in.Kind == labelconfig.ObjectChat {
			chatKeys[in.DataKey()] = true
		}
	}

	dataKeys := make([]string, 0, len(t.Data))
	for k := range t.Data {
		dataKeys = append(dataKeys, k)
	}
	sort.Strings(dataKeys)

	records := []*Record{}
	for ai := range t.Annotations {
		a := &t.Annotations[ai]
		if a.WasCancelled {
			continue
		}
		r := NewRecord()
		transcripts := [][2]string{}
		for _, k := range dataKeys {
			v := t.Data[k]
			if chatKeys[k] {
				if msgs, ok := normalizeChat(v); ok {
					v = msgs
					transcripts = append(transcripts, [2]string{k + "_transcript", Transcript(msgs)})
				}
			}
			r.Set(k, v)
		}
		r.Set("id", t.ID)

		for _, c := range cfg.Controls() {
			if v, ok := controlValue(c, a.Result); ok {
				r.Set(c.Name, v)
			}
		}

		r.Set("annotator", a.Annotator())
		r.Set("annotation_id", a.ID)
		r.Set("created_at", a.CreatedAt)
		r.Set("updated_at", a.UpdatedAt)
		if a.LeadTime != nil {
			r.Set("lead_time", *a.LeadTime)
		} else {
			r.Set("lead_time", nil)
		}
		if t.Agreement != nil {
			r.Set("agreement", *t.Agreement)
		}
		for _, tr := range transcripts {
			r.Set(tr[0], tr[1])
		}
		if len(t.Predictions) != 0 {
			r.Set("predictions", predictions(t.Predictions))
		}
		records = append(records, r)
	}
	return records
}

func predictions(preds []task.Annotation) []any {
	out := make([]any, 0, len(preds))
	for i := range preds {
		p := &preds[i]
		pr := NewRecord()
		if p.ModelVersion != nil {
			pr.Set("model_version", *p.ModelVersion)
		} else {
			pr.Set("model_version", nil)
		}
		if p.Score != nil {
			pr.Set("score", *p.Score)
		} else {
			pr.Set("score", nil)
		}
		result := make([]any, 0, len(p.Result))
		for _, item := range p.Result {
			if m, err := item.Map(); err == nil {
				result = append(result, m)
			}
		}
		pr.Set("result", result)
		out = append(out, pr)
	}
	return out
}
