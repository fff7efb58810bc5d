package collector

import "github.com/ftahirops/disktriage/model"

// Collector fills part of a DeviceInfo from one external source.
type Collector interface {
	Name() string
	Collect(info *model.DeviceInfo) error
}

// Registry holds the collaborators queried for every disk.
type Registry struct {
	collectors []Collector
}

// NewRegistry creates a registry with the default collaborators. smartctl is
// the binary used for attribute reads; an empty string disables it.
func NewRegistry(smartctl string) *Registry {
	r := &Registry{}
	if smartctl != "" {
		r.Add(NewSmartctlReader(smartctl))
	}
	r.Add(&MountCollector{})
	r.Add(&SysfsCollector{})
	return r
}

// Add registers an additional collector.
func (r *Registry) Add(c Collector) {
	r.collectors = append(r.collectors, c)
}

// Names lists the registered collectors in query order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.collectors))
	for i, c := range r.collectors {
		out[i] = c.Name()
	}
	return out
}

// CollectAll runs all collectors for device. Failures degrade the result
// instead of aborting it.
func (r *Registry) CollectAll(device string) (model.DeviceInfo, []error) {
	info := model.DeviceInfo{Device: device}
	var errs []error
	for _, c := range r.collectors {
		if err := c.Collect(&info); err != nil {
			errs = append(errs, err)
		}
	}
	return info, errs
}
