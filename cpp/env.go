package cpp

import "sort"

// Environment is the macro table of a translation unit. Macros defined
// while preprocessing one file stay visible in the files it includes and
// in later runs sharing the environment.
//
// An Environment is not safe for concurrent use.
type Environment struct {
	macros map[string]*Macro
}

func NewEnvironment() *Environment {
	return &Environment{macros: make(map[string]*Macro)}
}

// Lookup returns the macro named name, or nil.
func (env *Environment) Lookup(name string) *Macro {
	return env.macros[name]
}

func (env *Environment) IsDefined(name string) bool {
	_, ok := env.macros[name]
	return ok
}

// Define adds m, replacing and returning any previous definition of the
// same name.
func (env *Environment) Define(m *Macro) *Macro {
	prev := env.macros[m.Name]
	env.macros[m.Name] = m
	return prev
}

// Undefine removes the macro named name and returns it, or nil.
func (env *Environment) Undefine(name string) *Macro {
	m, ok := env.macros[name]
	if !ok {
		return nil
	}
	delete(env.macros, name)
	return m
}

// AddMacros defines every macro of ms, later entries winning.
func (env *Environment) AddMacros(ms []*Macro) {
	for _, m := range ms {
		env.Define(m)
	}
}

// Macros returns the defined macros sorted by name.
func (env *Environment) Macros() []*Macro {
	ret := make([]*Macro, 0, len(env.macros))
	for _, m := range env.macros {
		ret = append(ret, m)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (env *Environment) Len() int {
	return len(env.macros)
}

func (env *Environment) Reset() {
	env.macros = make(map[string]*Macro)
}
