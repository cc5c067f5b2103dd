package adapter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/table"
)

// typedArrayCtors maps each numeric on-disk type to the JS TypedArray
// constructor that views it without copying. Timestamp shares
// BigInt64Array with I64 since both are 8-byte signed nanosecond counts.
var typedArrayCtors = map[schema.ColumnType]string{
	schema.Timestamp: "BigInt64Array",
	schema.I8:        "Int8Array",
	schema.U8:        "Uint8Array",
	schema.I16:       "Int16Array",
	schema.U16:       "Uint16Array",
	schema.I32:       "Int32Array",
	schema.U32:       "Uint32Array",
	schema.F32:       "Float32Array",
	schema.I64:       "BigInt64Array",
	schema.U64:       "BigUint64Array",
	schema.F64:       "Float64Array",
}

// jsTypeAliases lets a scan parameter's "/* ... */" annotation use either
// the on-disk type token (typeName) or its TypedArray constructor name.
// BigInt64Array, shared by Timestamp and I64, resolves to Timestamp only,
// so an I64 column's annotation is "i64".
var jsTypeAliases = map[string]schema.ColumnType{
	"ts": schema.Timestamp, "timestamp": schema.Timestamp, "bigint64array": schema.Timestamp,
	"symbol": schema.Symbol, "string": schema.Symbol,
	"i8": schema.I8, "int8array": schema.I8,
	"u8": schema.U8, "uint8array": schema.U8,
	"i16": schema.I16, "int16array": schema.I16,
	"u16": schema.U16, "uint16array": schema.U16,
	"i32": schema.I32, "int32array": schema.I32,
	"u32": schema.U32, "uint32array": schema.U32,
	"f32": schema.F32, "float32array": schema.F32,
	"i64": schema.I64, "u64": schema.U64, "biguint64array": schema.U64,
	"f64": schema.F64, "float64array": schema.F64,
}

// JSAdapter runs a query's scan function in an embedded goja runtime. It
// implements Lang.
type JSAdapter struct {
	vm     *goja.Runtime
	scanFn goja.Callable
	scanV  goja.Value
	path   string
	source string

	accumulator goja.Value
}

// NewJS compiles source (sourced from path, used only in error messages)
// into a fresh goja runtime and resolves its scan entry point.
func NewJS(path, source string) (*JSAdapter, error) {
	vm := goja.New()
	if _, err := vm.RunString(runtimeJS); err != nil {
		return nil, fmt.Errorf("adapter: runtime shim failed to load: %w", err)
	}

	prog, err := goja.Compile(path, source, false)
	if err != nil {
		return nil, formatScriptError(err, path, source)
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return nil, formatScriptError(err, path, source)
	}

	scanV := vm.Get(scanFnName)
	if scanV == nil || goja.IsUndefined(scanV) {
		return nil, fmt.Errorf("%s: must define a %q function", path, scanFnName)
	}
	scanFn, ok := goja.AssertFunction(scanV)
	if !ok {
		return nil, fmt.Errorf("%s: %q must be a function", path, scanFnName)
	}

	return &JSAdapter{vm: vm, scanFn: scanFn, scanV: scanV, path: path, source: source}, nil
}

type jsParam struct {
	Name string
	Type string
}

// RequiredColumns introspects scan's declared parameters via the runtime
// shim's tickdbGetParams, validating each name against cols and, when a
// "/* type */" annotation is present, its declared type against the
// column's on-disk type.
func (a *JSAdapter) RequiredColumns(cols []schema.Column) ([]string, error) {
	getParams, ok := goja.AssertFunction(a.vm.Get("tickdbGetParams"))
	if !ok {
		return nil, errors.New("adapter: runtime shim is missing tickdbGetParams")
	}
	res, err := getParams(goja.Undefined(), a.scanV)
	if err != nil {
		return nil, formatScriptError(err, a.path, a.source)
	}

	raw, _ := res.Export().([]interface{})
	byName := columnIndexByName(cols)

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]interface{})
		p := jsParam{}
		if v, ok := m["name"].(string); ok {
			p.Name = v
		}
		if v, ok := m["type"].(string); ok {
			p.Type = v
		}
		if p.Name == "" {
			continue
		}

		idx, exists := byName[p.Name]
		if !exists {
			return nil, &UnknownColumnError{Column: p.Name}
		}
		if p.Type != "" {
			want, known := jsTypeAliases[strings.ToLower(p.Type)]
			if known && want != cols[idx].Type {
				return nil, &TypeMismatchError{Column: p.Name, Expected: cols[idx].Type, Actual: want}
			}
		}
		names = append(names, p.Name)
	}
	return names, nil
}

// ScanPartition invokes scan with one argument per batch column: a
// zero-copy TypedArray view over numeric columns, or a materialized
// string array for Symbol columns.
func (a *JSAdapter) ScanPartition(batch []*table.PartitionColumn) error {
	args := make([]goja.Value, len(batch))
	for i, pc := range batch {
		v, err := a.columnView(pc)
		if err != nil {
			return err
		}
		args[i] = v
	}

	res, err := a.scanFn(goja.Undefined(), args...)
	if err != nil {
		return formatScriptError(err, a.path, a.source)
	}
	a.accumulator = res
	return nil
}

func (a *JSAdapter) columnView(pc *table.PartitionColumn) (goja.Value, error) {
	if pc.Column.Type == schema.Symbol {
		return a.vm.ToValue(pc.Strings()), nil
	}

	ctorName, ok := typedArrayCtors[pc.Column.Type]
	if !ok {
		return nil, fmt.Errorf("adapter: column %q has no TypedArray view (%s)", pc.Column.Name, typeName(pc.Column.Type))
	}
	buf := a.vm.NewArrayBuffer(pc.Slice)
	ctor := a.vm.Get(ctorName)
	if ctor == nil || goja.IsUndefined(ctor) {
		return nil, fmt.Errorf("adapter: runtime is missing %s", ctorName)
	}
	view, err := a.vm.New(ctor, a.vm.ToValue(&buf))
	if err != nil {
		return nil, fmt.Errorf("adapter: could not construct %s for column %q: %w", ctorName, pc.Column.Name, err)
	}
	return view, nil
}

// Serialize stringifies the accumulator left by the most recent
// ScanPartition call.
func (a *JSAdapter) Serialize() ([]byte, error) {
	if a.accumulator == nil || goja.IsUndefined(a.accumulator) {
		return nil, errors.New("adapter: scan produced no value to serialize")
	}
	return []byte(a.accumulator.String()), nil
}

var stackFrameLine = regexp.MustCompile(`(\d+):(\d+)\)?\s*$`)

// formatScriptError renders a goja compile or runtime error using the
// shared file:line / source line / caret / message / stack-frames
// contract. goja doesn't expose precise column spans through its public
// error API, so the caret underlines the whole trimmed source line rather
// than an exact start..end span.
func formatScriptError(err error, path, source string) error {
	line, col := 0, 0
	if m := stackFrameLine.FindStringSubmatch(err.Error()); m != nil {
		fmt.Sscanf(m[1], "%d", &line)
		fmt.Sscanf(m[2], "%d", &col)
	}

	var sourceLine string
	lines := strings.Split(source, "\n")
	if line > 0 && line <= len(lines) {
		sourceLine = lines[line-1]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d\n", path, line)
	b.WriteString(sourceLine)
	b.WriteString("\n")
	if col > 0 && col <= len(sourceLine)+1 {
		b.WriteString(strings.Repeat(" ", col-1))
	}
	caretLen := len(strings.TrimRight(sourceLine, " \t"))
	if caretLen == 0 {
		caretLen = 1
	}
	b.WriteString(strings.Repeat("^", caretLen))
	b.WriteString("\n\n")
	b.WriteString(err.Error())

	var ex *goja.Exception
	if errors.As(err, &ex) {
		if obj, ok := ex.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				b.WriteString("\n")
				b.WriteString(stack.String())
			}
		}
	}

	return errors.New(b.String())
}
