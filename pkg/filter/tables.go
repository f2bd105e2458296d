package filter

// RAW camera formats, lowercased and without the dot.
var rawExtensions = []string{
	"3fr", "ari", "arw", "bay", "cap", "cr2", "cr3", "crw", "dcr", "dcs",
	"dng", "drf", "eip", "erf", "fff", "gpr", "mdc", "mef", "mos", "mrw",
	"nef", "nrw", "obm", "orf", "pef", "ptx", "pxn", "r3d", "raf", "raw",
	"rw2", "rwl", "rwz", "sr2", "srf", "srw", "x3f",
}

// Lossy and developed image formats.
var lossyExtensions = []string{
	"avif", "heic", "heif", "hif", "jpeg", "jpg", "png", "tif", "tiff",
}

// Sidecar, database, installer and camera catalog files. Sidecars are copied
// alongside their primary file instead of on their own.
var junkExtensions = set(
	"xmp", "thm", "lrv", "db", "dat", "ini", "lnk", "url", "tmp",
	"exe", "msi", "dmg", "pkg", "ctg", "bdm", "cpi", "mpl",
)

// Lowercased stems of files that operating systems and cameras leave behind.
var junkStems = set(
	"indexervolumeguid", "thumbs", "desktop", "wpsettings", ".ds_store",
)

// Lowercased names of system folders that never contain user media.
var junkFolders = set(
	"system volume information", "$recycle.bin", ".trashes",
	".spotlight-v100", ".fseventsd", "lost+found", "@eadir", "#recycle",
	"found.000",
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// RawExtensions returns a copy of the RAW extension table.
func RawExtensions() []string { return append([]string(nil), rawExtensions...) }

// LossyExtensions returns a copy of the lossy image extension table.
func LossyExtensions() []string { return append([]string(nil), lossyExtensions...) }

// IsRaw reports whether ext (lowercase, no dot) is a RAW format.
func IsRaw(ext string) bool {
	for _, e := range rawExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
