package document

import (
	"github.com/andrewchambers/ppengine/cpp"
)

// Snapshot holds the documents of previously preprocessed files by path.
type Snapshot map[string]*Document

func (s Snapshot) Add(doc *Document) {
	s[doc.FileName] = doc
}

// MergeEnvironment defines in env the macros of fileName and, before them,
// those of every file it includes, following resolved includes through
// the snapshot. Each file is merged once.
func (s Snapshot) MergeEnvironment(env *cpp.Environment, fileName string) {
	s.merge(env, fileName, make(map[string]bool))
}

func (s Snapshot) merge(env *cpp.Environment, fileName string, merged map[string]bool) {
	if merged[fileName] {
		return
	}
	merged[fileName] = true
	doc, ok := s[fileName]
	if !ok {
		return
	}
	for _, inc := range doc.Includes {
		if !inc.Unresolved() {
			s.merge(env, inc.Resolved, merged)
		}
	}
	env.AddMacros(doc.Macros)
}

// Options of Snapshot.Preprocess.
type Options struct {
	QuoteDirs  []string
	SystemDirs []string
	// Replaces cpp.DefaultConfiguration when not nil.
	Configuration            []byte
	ExpandFunctionlikeMacros bool
	KeepComments             bool
	Cancel                   func() bool
}

// fastClient merges the snapshot document of every include instead of
// reading the file again.
type fastClient struct {
	*Document
	snapshot Snapshot
	env      *cpp.Environment
	merged   map[string]bool
}

func (c *fastClient) SourceNeeded(pos cpp.FilePos, fileName string, resolved string, mode cpp.IncludeType) {
	c.Document.SourceNeeded(pos, fileName, resolved, mode)
	if resolved != "" {
		c.snapshot.merge(c.env, resolved, c.merged)
	}
}

// Preprocess runs src as fileName and adds the resulting document to the
// snapshot. Includes resolve only to files already in the snapshot; their
// macros are merged at the point of the include and their text is not
// preprocessed again.
func (s Snapshot) Preprocess(fileName string, src []byte, opts Options) (*Document, error) {
	doc := New(fileName)
	env := cpp.NewEnvironment()
	client := &fastClient{
		Document: doc,
		snapshot: s,
		env:      env,
		merged:   map[string]bool{fileName: true},
	}
	files := make(map[string]string, len(s))
	for name := range s {
		files[name] = ""
	}
	pp := cpp.New(client, env)
	pp.SetIncludeSearcher(cpp.NewMapIncludeSearcher(files, opts.QuoteDirs, opts.SystemDirs))
	if opts.Configuration != nil {
		pp.SetConfiguration(opts.Configuration)
	}
	pp.SetExpandFunctionlikeMacros(opts.ExpandFunctionlikeMacros)
	pp.SetKeepComments(opts.KeepComments)
	pp.SetCancelChecker(opts.Cancel)
	out, err := pp.Run(fileName, src, true, false)
	doc.Source = out
	s.Add(doc)
	return doc, err
}
