package normalize

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// Commit is one parsed commit line, before filtering and enrichment
type Commit struct {
	PC     uint64
	Binary uint64

	// Write is nil when the instruction wrote no integer register (stores, branches, ...)
	Write *trace.Write
}

// Dialect recognizes the commit lines of one executor's log.
// Every dialect pattern must define the named groups pc, binary, rd and value.
type Dialect struct {
	Name    string
	pattern *regexp.Regexp

	pcGroup     int
	binaryGroup int
	rdGroup     int
	valueGroup  int
}

// NewDialect compiles a commit line pattern. It panics if a required named group is missing.
func NewDialect(name, pattern string) *Dialect {
	re := regexp.MustCompile(pattern)
	d := &Dialect{
		Name:        name,
		pattern:     re,
		pcGroup:     re.SubexpIndex("pc"),
		binaryGroup: re.SubexpIndex("binary"),
		rdGroup:     re.SubexpIndex("rd"),
		valueGroup:  re.SubexpIndex("value"),
	}

	for group, index := range map[string]int{"pc": d.pcGroup, "binary": d.binaryGroup, "rd": d.rdGroup, "value": d.valueGroup} {
		if index < 0 {
			panic(fmt.Sprintf("dialect %s: commit pattern lacks named group %q", name, group))
		}
	}

	return d
}

var (
	// RTL matches the testbench tracer output: "core 0: 0x80000014 (0x00128293) x5 0x0000002a".
	// The tracer also reports x0 writes, which the normalizer drops.
	RTL = NewDialect("rtl",
		`core\s+\d+:\s+0x(?P<pc>[0-9a-fA-F]+)\s+\(0x(?P<binary>[0-9a-fA-F]+)\)(?:\s+x(?P<rd>\d+)\s+0x(?P<value>[0-9a-fA-F]+))?`)

	// Spike matches spike --log-commits output: "core   0: 3 0x80000014 (0x00128293) x5  0x0000002a".
	// The privilege level field is optional so that plain -l instruction lines are recognized (and
	// dropped for lacking a write); "mem" and CSR suffixes are not register writes.
	Spike = NewDialect("spike",
		`core\s+\d+:\s+(?:\d+\s+)?0x(?P<pc>[0-9a-fA-F]+)\s+\(0x(?P<binary>[0-9a-fA-F]+)\)(?:\s+x(?P<rd>\d+)\s+0x(?P<value>[0-9a-fA-F]+))?`)
)

// Dialects lists the built-in dialects by name
var Dialects = map[string]*Dialect{
	RTL.Name:   RTL,
	Spike.Name: Spike,
}

// LookupDialect returns the built-in dialect with the given name
func LookupDialect(name string) (*Dialect, error) {
	if d, ok := Dialects[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown log dialect %q (supported: %v)", name, utils.SortedKeys(Dialects))
}

// Pattern returns the commit line regular expression
func (d *Dialect) Pattern() string {
	return d.pattern.String()
}

// ParseCommit matches a raw log line. Lines that are not commit lines yield false.
func (d *Dialect) ParseCommit(line string) (Commit, bool) {
	match := d.pattern.FindStringSubmatch(line)
	if match == nil {
		return Commit{}, false
	}

	pc, err := strconv.ParseUint(match[d.pcGroup], 16, 64)
	if err != nil {
		return Commit{}, false
	}
	binary, err := strconv.ParseUint(match[d.binaryGroup], 16, 64)
	if err != nil {
		return Commit{}, false
	}

	commit := Commit{PC: pc, Binary: binary}

	if match[d.rdGroup] != "" {
		rd, err := strconv.Atoi(match[d.rdGroup])
		if err != nil {
			return Commit{}, false
		}
		value, err := strconv.ParseUint(match[d.valueGroup], 16, 64)
		if err != nil {
			return Commit{}, false
		}
		commit.Write = &trace.Write{Register: rd, Value: value}
	}

	return commit, true
}
