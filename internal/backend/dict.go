package backend

import (
	"fmt"
	"sort"
	"strings"

	astiav "github.com/asticode/go-astiav"
)

// NewDict builds an astiav.Dictionary from pairs, the same shape as
// the teacher's rd/vopts dictionaries in video.go's openAndDecode.
func NewDict(pairs map[string]string) *astiav.Dictionary {
	d := astiav.NewDictionary()
	for k, v := range pairs {
		_ = d.Set(k, v, 0)
	}
	return d
}

// JoinDict renders a dictionary as "k=v k2=v2 ..." for log lines,
// ported from the teacher's helpers.go DictPairs/JoinDict.
func JoinDict(d *astiav.Dictionary) string {
	if d == nil {
		return ""
	}
	var pairs []string
	var prev *astiav.DictionaryEntry
	flags := astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix)
	for {
		e := d.Get("", prev, flags)
		if e == nil {
			break
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", e.Key(), e.Value()))
		prev = e
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
