package search

// Primitive is one entry of the query surface exposed to the oracle. The
// registry is a static table: adding a primitive means adding a row here,
// and arity validation reads the same table the dispatcher does.
type Primitive struct {
	Name  string
	Arity int
	Run   func(b *Backend, args []string) (string, []Result, bool)
}

var primitives = map[string]Primitive{
	"search_class": {
		Name:  "search_class",
		Arity: 1,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchClass(args[0])
		},
	},
	"search_class_in_file": {
		Name:  "search_class_in_file",
		Arity: 2,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchClassInFile(args[0], args[1])
		},
	},
	"search_method_in_file": {
		Name:  "search_method_in_file",
		Arity: 2,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchMethodInFile(args[0], args[1])
		},
	},
	"search_method_in_class": {
		Name:  "search_method_in_class",
		Arity: 2,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchMethodInClass(args[0], args[1])
		},
	},
	"search_method": {
		Name:  "search_method",
		Arity: 1,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchMethod(args[0])
		},
	},
	"search_code": {
		Name:  "search_code",
		Arity: 1,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchCode(args[0])
		},
	},
	"search_code_in_file": {
		Name:  "search_code_in_file",
		Arity: 2,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.SearchCodeInFile(args[0], args[1])
		},
	},
	"get_code_around_line": {
		Name:  "get_code_around_line",
		Arity: 3,
		Run: func(b *Backend, args []string) (string, []Result, bool) {
			return b.GetCodeAroundLine(args[0], args[1], args[2])
		},
	},
}

// Lookup returns the primitive registered under name.
func Lookup(name string) (Primitive, bool) {
	p, ok := primitives[name]
	return p, ok
}

// Fixed name order, matching the API list shown to the oracle.
var primitiveNames = []string{
	"search_class",
	"search_class_in_file",
	"search_method_in_file",
	"search_method_in_class",
	"search_method",
	"search_code",
	"search_code_in_file",
	"get_code_around_line",
}

// PrimitiveNames returns the primitive names in their documented order.
func PrimitiveNames() []string {
	names := make([]string, len(primitiveNames))
	copy(names, primitiveNames)
	return names
}
