package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// DetectHistMsec scans a fio job file for a log_hist_msec setting and
// returns it if any section defines one. fio job files are INI with
// valueless keys, so boolean keys are allowed when parsing.
func DetectHistMsec(path string) (int64, bool, error) {
	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return 0, false, fmt.Errorf("job file %s: %w", path, err)
	}

	for _, sec := range f.Sections() {
		if !sec.HasKey("log_hist_msec") {
			continue
		}
		msec, err := sec.Key("log_hist_msec").Int64()
		if err != nil {
			continue
		}
		return msec, true, nil
	}
	return 0, false, nil
}
