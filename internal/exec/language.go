package exec

import "strings"

const (
	srcPlaceholder = "{src}"
	binPlaceholder = "{bin}"
)

// Language describes how to turn a source snippet into output. Compile is
// empty for interpreted languages. Argv templates may reference {src} (the
// scratch source file) and {bin} (the compiled artifact).
type Language struct {
	Name    string
	Ext     string
	Compile []string
	Run     []string
}

func (l Language) compiled() bool {
	return len(l.Compile) > 0
}

func expandArgs(tmpl []string, src, bin string) []string {
	args := make([]string, 0, len(tmpl))
	for _, a := range tmpl {
		a = strings.ReplaceAll(a, srcPlaceholder, src)
		a = strings.ReplaceAll(a, binPlaceholder, bin)
		args = append(args, a)
	}
	return args
}

// Builtins returns the default language set: interpreted Python and
// compiled C++, with configurable toolchain binaries.
func Builtins(pythonBin, cxxBin string) []Language {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if cxxBin == "" {
		cxxBin = "g++"
	}
	return []Language{
		{
			Name: "python",
			Ext:  ".py",
			Run:  []string{pythonBin, srcPlaceholder},
		},
		{
			Name:    "cpp",
			Ext:     ".cpp",
			Compile: []string{cxxBin, srcPlaceholder, "-o", binPlaceholder},
			Run:     []string{binPlaceholder},
		},
	}
}
