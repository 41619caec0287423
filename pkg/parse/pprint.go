package parse

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/spk121/sh23/pkg/token"
)

// Pprint renders a grammar tree in an indented, line-oriented form, one field
// per line. It is only used by tests and debugging aids; the format is not
// stable.
func Pprint(n any) string {
	var b bytes.Buffer
	pprint(&b, "", toTree(n))
	return b.String()
}

// An intermediate representation for nodes, keeping information relevant in
// the tree dump.
type tree struct {
	name   string
	fields []*treeField
}

type treeField struct {
	name   string
	scalar string
	node   *tree
	nodes  []*tree
	many   bool
}

func toTree(n any) *tree {
	v := reflect.ValueOf(n)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil
	}
	if t, ok := n.(*token.Token); ok {
		return &tree{name: fmt.Sprintf("%v %q", t.Type, t.Text)}
	}
	if h, ok := n.(*token.Heredoc); ok {
		return &tree{name: fmt.Sprintf("heredoc %q %q", h.Delim, h.Body)}
	}

	v = v.Elem()
	typ := v.Type()
	a := &tree{name: typ.Name()}
	for i := 0; i < v.NumField(); i++ {
		if typ.Field(i).PkgPath != "" {
			continue
		}
		f := &treeField{name: typ.Field(i).Name}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Pointer:
			f.node = toTree(fv.Interface())
		case reflect.Slice:
			if fv.Type().Elem().Kind() == reflect.Pointer {
				f.many = true
				for j := 0; j < fv.Len(); j++ {
					f.nodes = append(f.nodes, toTree(fv.Index(j).Interface()))
				}
			} else {
				f.scalar = scalarString(fv.Interface())
			}
		default:
			f.scalar = scalarString(fv.Interface())
		}
		a.fields = append(a.fields, f)
	}
	return a
}

func scalarString(x any) string {
	switch x := x.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case token.Type:
		return x.String()
	case []token.Type:
		var b bytes.Buffer
		for i, t := range x {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(t.String())
		}
		return b.String()
	case CaseTerm:
		return fmt.Sprintf("%q", x.String())
	default:
		return fmt.Sprint(x)
	}
}

func pprint(buf *bytes.Buffer, indent string, a *tree) {
	if a == nil {
		buf.WriteString("nil")
		return
	}

	buf.WriteString(a.name)

	indent1 := indent + "  "
	indent2 := indent1 + "  "

	for _, f := range a.fields {
		buf.WriteString("\n" + indent1 + "." + f.name + " = ")
		switch {
		case f.many:
			for _, node := range f.nodes {
				buf.WriteString("\n" + indent2)
				pprint(buf, indent2, node)
			}
		case f.node != nil:
			pprint(buf, indent1, f.node)
		case f.scalar != "":
			buf.WriteString(f.scalar)
		default:
			buf.WriteString("nil")
		}
	}
}
