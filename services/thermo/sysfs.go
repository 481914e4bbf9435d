package thermo

import (
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"ringlight-go/errcode"
)

// Sysfs reads Linux thermal zones (thermal_zoneN/temp, millidegrees).
// Zones are indexed in name order; the address carries the zone number.
type Sysfs struct {
	fsys  fs.FS
	zones []string
}

// NewSysfs reads zones from fsys, normally os.DirFS("/sys/class/thermal").
func NewSysfs(fsys fs.FS) *Sysfs { return &Sysfs{fsys: fsys} }

func (s *Sysfs) Begin() error {
	if s.fsys == nil {
		return &errcode.E{C: errcode.NoDevice, Op: "sysfs.begin", Msg: "no filesystem"}
	}
	matches, err := fs.Glob(s.fsys, "thermal_zone*/temp")
	if err != nil {
		return errcode.Wrap(errcode.Error, "sysfs.begin", err)
	}
	if len(matches) == 0 {
		return &errcode.E{C: errcode.NoDevice, Op: "sysfs.begin", Msg: "no thermal zones"}
	}
	sort.Slice(matches, func(i, j int) bool { return zoneNum(matches[i]) < zoneNum(matches[j]) })
	s.zones = matches
	return nil
}

func zoneNum(p string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(path.Dir(p), "thermal_zone"))
	return n
}

func (s *Sysfs) Address(index int) (Address, error) {
	if index < 0 || index >= len(s.zones) {
		return Address{}, errcode.NotFound
	}
	n := zoneNum(s.zones[index])
	return Address{0xFE, 0, 0, 0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, nil
}

func (s *Sysfs) zone(a Address) (string, error) {
	n := int(a[4])<<24 | int(a[5])<<16 | int(a[6])<<8 | int(a[7])
	for _, z := range s.zones {
		if zoneNum(z) == n && a[0] == 0xFE {
			return z, nil
		}
	}
	return "", errcode.NotFound
}

// RequestByAddress is a no-op: the kernel keeps the zone current.
func (s *Sysfs) RequestByAddress(a Address) error {
	_, err := s.zone(a)
	return err
}

func (s *Sysfs) TempC(a Address) (float32, error) {
	z, err := s.zone(a)
	if err != nil {
		return nan(), err
	}
	b, err := fs.ReadFile(s.fsys, z)
	if err != nil {
		return nan(), errcode.Wrap(errcode.Error, "sysfs.read", err)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return nan(), errcode.Wrap(errcode.InvalidPayload, "sysfs.read", err)
	}
	return float32(milli) / 1000, nil
}
