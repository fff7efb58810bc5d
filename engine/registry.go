package engine

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ftahirops/disktriage/model"
)

// Registry owns every DiskErrorRecord of a run, keyed by device.
// It has a single writer: the parser and the SMART merger run one after the
// other and never concurrently, so there is no lock.
type Registry struct {
	records map[string]*model.DiskErrorRecord
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*model.DiskErrorRecord)}
}

// GetOrCreate returns the record for device, creating it on first reference.
// host is stored only if the record has none yet.
func (r *Registry) GetOrCreate(device, host string) (*model.DiskErrorRecord, error) {
	if device == "" {
		return nil, ErrEmptyDevice
	}
	rec, ok := r.records[device]
	if !ok {
		rec = &model.DiskErrorRecord{Device: device}
		r.records[device] = rec
	}
	if rec.Host == "" && host != "" {
		rec.Host = host
	}
	return rec, nil
}

// Lookup returns the record for device without creating it.
func (r *Registry) Lookup(device string) (*model.DiskErrorRecord, bool) {
	rec, ok := r.records[device]
	return rec, ok
}

// Len returns the number of records.
func (r *Registry) Len() int { return len(r.records) }

// Devices returns the known device ids in ascending order.
func (r *Registry) Devices() []string {
	out := make([]string, 0, len(r.records))
	for d := range r.records {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Records returns the records ordered by device.
func (r *Registry) Records() []*model.DiskErrorRecord {
	devs := r.Devices()
	out := make([]*model.DiskErrorRecord, len(devs))
	for i, d := range devs {
		out[i] = r.records[d]
	}
	return out
}

// AppendEvent adds ev after every existing event.
func (r *Registry) AppendEvent(rec *model.DiskErrorRecord, ev model.ErrorEvent) {
	rec.ErrorEvents = append(rec.ErrorEvents, ev)
}

// AppendRawLines adds the supporting log lines after the existing ones.
func (r *Registry) AppendRawLines(rec *model.DiskErrorRecord, lines []string) {
	rec.RawLogLines = append(rec.RawLogLines, lines...)
}

// Annotate copies correlation hints onto the record. Empty values leave the
// record untouched.
func (r *Registry) Annotate(rec *model.DiskErrorRecord, target, sasIndex string) {
	if target != "" {
		rec.Target = target
	}
	if sasIndex != "" {
		rec.SASIndex = sasIndex
	}
}

// SetAttribute records the latest observed value of a SMART attribute.
func (r *Registry) SetAttribute(rec *model.DiskErrorRecord, key string, value int64) {
	if rec.SmartAttributes == nil {
		rec.SmartAttributes = make(map[string]int64)
	}
	rec.SmartAttributes[key] = value
}

// SetHistory attaches a merged SMART history.
func (r *Registry) SetHistory(rec *model.DiskErrorRecord, h *model.SmartHistory) {
	rec.SmartHistory = h
}

// ApplyDeviceInfo merges collaborator facts into the record for info.Device.
// Identity fields already present are kept.
func (r *Registry) ApplyDeviceInfo(info model.DeviceInfo, host string) (*model.DiskErrorRecord, error) {
	rec, err := r.GetOrCreate(info.Device, host)
	if err != nil {
		return nil, err
	}
	if rec.Model == "" {
		rec.Model = info.Model
	}
	if rec.Serial == "" {
		rec.Serial = info.Serial
	}
	if rec.WWN == "" {
		rec.WWN = info.WWN
	}
	if info.Location != "" {
		rec.Location = info.Location
	}
	if len(info.MountPoints) > 0 {
		rec.MountPoints = append([]string(nil), info.MountPoints...)
	}
	if info.IOErrors > 0 {
		rec.IOErrors = info.IOErrors
	}
	if info.Health != nil {
		rec.Health = info.Health
	}
	for _, k := range model.SortedKeys(info.Attributes) {
		r.SetAttribute(rec, k, info.Attributes[k])
	}
	return rec, nil
}

// Digest hashes the sorted, msgpack-encoded records. Two registries built from
// the same input have the same digest.
func (r *Registry) Digest() (uint64, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(r.Records()); err != nil {
		return 0, fmt.Errorf("encode registry: %w", err)
	}
	return xxhash.Sum64(buf.Bytes()), nil
}
