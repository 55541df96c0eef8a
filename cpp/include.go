package cpp

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IncludeSearcher resolves include directives to files.
//
// Every method returns the full path of the file, the index of the search
// directory it was found in (-1 when found next to the requesting file), a
// reader of the contents or an error.
type IncludeSearcher interface {
	//IncludeQuote is invoked when the preprocessor
	//encounters an include of the form #include "foo.h".
	IncludeQuote(requestingFile, headerPath string) (string, int, io.Reader, error)
	//IncludeAngled is invoked when the preprocessor
	//encounters an include of the form #include <foo.h>.
	IncludeAngled(requestingFile, headerPath string) (string, int, io.Reader, error)
	//IncludeNext is invoked for #include_next. The search starts after
	//directory dirIndex, the directory the requesting file was found in.
	IncludeNext(requestingFile string, dirIndex int, headerPath string) (string, int, io.Reader, error)
}

// searchPath is the ordered list of include directories. Quote directories
// come first and are only used by quote includes.
type searchPath struct {
	quoteDirs  []string
	systemDirs []string
	join       func(elem ...string) string
	dir        func(p string) string
	open       func(p string) (io.Reader, bool, error)
}

func (sp *searchPath) dirAt(idx int) string {
	if idx < len(sp.quoteDirs) {
		return sp.quoteDirs[idx]
	}
	return sp.systemDirs[idx-len(sp.quoteDirs)]
}

func (sp *searchPath) ndirs() int {
	return len(sp.quoteDirs) + len(sp.systemDirs)
}

// searchFrom looks for headerPath in the directories from index start on.
func (sp *searchPath) searchFrom(start int, headerPath string) (string, int, io.Reader, error) {
	if sp.isAbs(headerPath) {
		rdr, ok, err := sp.open(headerPath)
		if err != nil {
			return "", 0, nil, err
		}
		if ok {
			return headerPath, -1, rdr, nil
		}
		return "", 0, nil, fmt.Errorf("header %s not found", headerPath)
	}
	for idx := start; idx < sp.ndirs(); idx++ {
		p := sp.join(sp.dirAt(idx), headerPath)
		rdr, ok, err := sp.open(p)
		if err != nil {
			return "", 0, nil, err
		}
		if ok {
			return p, idx, rdr, nil
		}
	}
	return "", 0, nil, fmt.Errorf("header %s not found", headerPath)
}

func (sp *searchPath) isAbs(p string) bool {
	return strings.HasPrefix(p, "/") || filepath.IsAbs(p)
}

func (sp *searchPath) IncludeQuote(requestingFile, headerPath string) (string, int, io.Reader, error) {
	if !sp.isAbs(headerPath) {
		p := sp.join(sp.dir(requestingFile), headerPath)
		rdr, ok, err := sp.open(p)
		if err != nil {
			return "", 0, nil, err
		}
		if ok {
			return p, -1, rdr, nil
		}
	}
	return sp.searchFrom(0, headerPath)
}

func (sp *searchPath) IncludeAngled(requestingFile, headerPath string) (string, int, io.Reader, error) {
	return sp.searchFrom(len(sp.quoteDirs), headerPath)
}

func (sp *searchPath) IncludeNext(requestingFile string, dirIndex int, headerPath string) (string, int, io.Reader, error) {
	if dirIndex < 0 {
		return sp.IncludeAngled(requestingFile, headerPath)
	}
	return sp.searchFrom(dirIndex+1, headerPath)
}

// StandardIncludeSearcher finds headers on the file system.
type StandardIncludeSearcher struct {
	searchPath
}

func fileExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !st.IsDir(), nil
}

func openFile(p string) (io.Reader, bool, error) {
	exists, err := fileExists(p)
	if err != nil || !exists {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	return bytes.NewReader(data), true, nil
}

// NewStandardIncludeSearcher searches quoteDirs then systemDirs for quote
// includes, and systemDirs only for angled includes.
func NewStandardIncludeSearcher(quoteDirs, systemDirs []string) *StandardIncludeSearcher {
	return &StandardIncludeSearcher{searchPath{
		quoteDirs:  quoteDirs,
		systemDirs: systemDirs,
		join:       filepath.Join,
		dir:        filepath.Dir,
		open:       openFile,
	}}
}

// ParseIncludePath splits a ; separated list of paths.
func ParseIncludePath(includePaths string) []string {
	var ret []string
	for _, p := range strings.Split(includePaths, ";") {
		if p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}

// MapIncludeSearcher serves headers from memory, keyed by slash separated
// path.
type MapIncludeSearcher struct {
	searchPath
	Files map[string]string
}

func NewMapIncludeSearcher(files map[string]string, quoteDirs, systemDirs []string) *MapIncludeSearcher {
	ret := &MapIncludeSearcher{Files: files}
	ret.searchPath = searchPath{
		quoteDirs:  quoteDirs,
		systemDirs: systemDirs,
		join:       path.Join,
		dir:        path.Dir,
		open: func(p string) (io.Reader, bool, error) {
			src, ok := ret.Files[p]
			if !ok {
				return nil, false, nil
			}
			return strings.NewReader(src), true, nil
		},
	}
	return ret
}
