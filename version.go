package bassdts

import "fmt"

// Version is an engine or plugin version: major.minor.revision.build,
// packed 8 bits each.
type Version uint32

// RequiredEngineVersion is the engine major/minor the plugin is built
// against (2.4). The plugin refuses to load into any other.
const RequiredEngineVersion Version = 0x02040000

// PluginVersion is the version the bass_dts plugin reports.
const PluginVersion Version = 0x02040000

func (v Version) Major() int    { return int(v >> 24 & 0xff) }
func (v Version) Minor() int    { return int(v >> 16 & 0xff) }
func (v Version) Revision() int { return int(v >> 8 & 0xff) }
func (v Version) Build() int    { return int(v & 0xff) }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major(), v.Minor(), v.Revision(), v.Build())
}

// Compatible returns true if v has the same major and minor as want.
func (v Version) Compatible(want Version) bool {
	return v>>16 == want>>16
}

// CheckEngineVersion verifies the engine is a version the plugin accepts.
func CheckEngineVersion(engine Engine) error {
	v := Version(engine.Version())
	if !v.Compatible(RequiredEngineVersion) {
		return fmt.Errorf("%w: engine %s, plugin requires %d.%d",
			&Error{Op: "version check", Code: ErrorVersion}, v,
			RequiredEngineVersion.Major(), RequiredEngineVersion.Minor())
	}
	return nil
}
