package hcl_adapter

import (
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions are the helpers available to manifest expressions.
var functions = map[string]function.Function{
	"format": stdlib.FormatFunc,
	"join":   stdlib.JoinFunc,
	"lower":  stdlib.LowerFunc,
	"upper":  stdlib.UpperFunc,
	"concat": stdlib.ConcatFunc,
}

// evalContext builds the expression scope for one document. Project bodies
// additionally see the document's core version as "core".
func evalContext(source string, core *string) *hcl.EvalContext {
	vars := map[string]cty.Value{
		"manifest_dir": cty.StringVal(filepath.ToSlash(filepath.Dir(source))),
	}
	if core != nil {
		vars["core"] = cty.StringVal(*core)
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}
}
