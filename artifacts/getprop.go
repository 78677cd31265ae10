package artifacts

import (
	"libmvt/core"
	"libmvt/util"
)

var getPropLine = util.MustCompileSafe(`\[(.+?)\]: \[(.*?)\]`, 0)

// GetProp parses the output of `getprop` (getprop.txt)
type GetProp struct {
	records
}

var _ Artifact = (*GetProp)(nil)

func NewGetProp() *GetProp {
	return &GetProp{}
}

func (g *GetProp) Name() string {
	return "getprop"
}

func (g *GetProp) Parse(input string) error {
	g.reset()
	for _, line := range splitLines(input) {
		groups, err := getPropLine.FindSubmatch(line)
		if err != nil {
			return err
		}
		if groups == nil {
			continue
		}
		g.add(map[string]any{"name": groups[1], "value": groups[2]})
	}
	return nil
}

func (g *GetProp) CheckIndicators(m Matcher) []core.Detection {
	return g.checkField(m, "name", core.CategoryPropertyName)
}
