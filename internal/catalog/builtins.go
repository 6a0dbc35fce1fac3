package catalog

import (
	"github.com/helgesson/go-battgw/internal/decoder"
	"github.com/helgesson/go-battgw/internal/transform"
)

// BuiltIn returns the catalog of supported device families. The field sets
// mirror what the vendor firmware actually reports; adding a model is a
// matter of extending this data, the decode pipeline is generic.
func BuiltIn() (*Catalog, error) {
	return New(hmbStorage(), hmgStorage())
}

// hmbStorage describes the HMB-series balcony storage units: two solar
// inputs, two switchable outputs, per-cell battery telemetry and two
// programmable discharge timers.
func hmbStorage() Model {
	runtime := SubMessage{
		Name:     "runtimeInfo",
		Requires: []string{"pe", "w1", "g1"},
		Fields: []decoder.FieldDefinition{
			decoder.Field("pe", decoder.Path("batteryPercentage")),
			decoder.Field("kn", decoder.Path("batteryCapacity")),
			decoder.Field("w1", decoder.Path("solarInputPower1")),
			decoder.Field("w2", decoder.Path("solarInputPower2")),
			decoder.MultiField([]string{"w1", "w2"}, decoder.Path("totalInputPower"), transform.Sum()),
			decoder.Field("g1", decoder.Path("outputPower1")),
			decoder.Field("g2", decoder.Path("outputPower2")),
			decoder.MultiField([]string{"g1", "g2"}, decoder.Path("totalOutputPower"), transform.Sum()),
			decoder.FieldWith("o1", decoder.Path("output1Active"), transform.EqualsBoolean("1")),
			decoder.FieldWith("o2", decoder.Path("output2Active"), transform.EqualsBoolean("1")),
			decoder.FieldWith("sg", decoder.Path("gridConnected"), transform.Boolean()),
			decoder.FieldWith("cs", decoder.Path("chargingMode"), transform.MapTableDefault("unknown",
				transform.MapEntry{Key: "0", Value: "pv2PassThrough"},
				transform.MapEntry{Key: "1", Value: "chargeThenDischarge"},
				transform.MapEntry{Key: "2", Value: "simultaneous"},
			)),
			decoder.FieldWith("lv", decoder.Path("outputThreshold"), transform.ParseInt()),
			decoder.FieldWith("do", decoder.Path("dischargeDepth"), transform.ParseInt()),
			decoder.FieldWith("tc", decoder.Path("temperature1"), transform.Temperature()),
			decoder.FieldWith("tf", decoder.Path("temperature2"), transform.Temperature()),
			decoder.FieldWith("m0", decoder.Path("mppt", 0, "voltage"), transform.MpptPVField(transform.PVVoltage)),
			decoder.FieldWith("m0", decoder.Path("mppt", 0, "current"), transform.MpptPVField(transform.PVCurrent)),
			decoder.FieldWith("m0", decoder.Path("mppt", 0, "power"), transform.MpptPVField(transform.PVPower)),
			decoder.FieldWith("m1", decoder.Path("mppt", 1, "voltage"), transform.MpptPVField(transform.PVVoltage)),
			decoder.FieldWith("m1", decoder.Path("mppt", 1, "current"), transform.MpptPVField(transform.PVCurrent)),
			decoder.FieldWith("m1", decoder.Path("mppt", 1, "power"), transform.MpptPVField(transform.PVPower)),
		},
	}
	for slot, key := range []string{"d1", "d2"} {
		runtime.Fields = append(runtime.Fields, timePeriodFields(key, slot)...)
	}

	info := SubMessage{
		Name:     "deviceInfo",
		Requires: []string{"vv"},
		Fields: []decoder.FieldDefinition{
			decoder.FieldWith("vv", decoder.Path("firmwareVersion"), transform.Chain(transform.Divide(100), transform.RoundTo(2))),
			decoder.FieldWith("sv", decoder.Path("controllerVersion"), transform.ParseInt()),
			decoder.FieldWith("id", decoder.Path("deviceSerial"), transform.Identity()),
			decoder.FieldWith("ct", decoder.Path("deviceTime"), transform.TimeString()),
			decoder.FieldWith("td", decoder.Path("model"), transform.MapTableDefault("unknown",
				transform.MapEntry{Key: "0", Value: "HMB-1800"},
				transform.MapEntry{Key: "1", Value: "HMB-2450"},
			)),
		},
	}

	cellKeys := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9", "c10", "c11", "c12", "c13", "c14"}
	cells := SubMessage{
		Name:     "cellInfo",
		Requires: []string{"c1"},
	}
	for i, key := range cellKeys {
		cells.Fields = append(cells.Fields, decoder.FieldWith(key,
			decoder.Path("cells", i, "voltage"),
			transform.Chain(transform.Divide(1000), transform.RoundTo(3))))
	}
	cells.Fields = append(cells.Fields,
		decoder.MultiField(cellKeys, decoder.Path("cellVoltageMin"), transform.Min(1000)),
		decoder.MultiField(cellKeys, decoder.Path("cellVoltageMax"), transform.Max(1000)),
		decoder.MultiField(cellKeys, decoder.Path("cellVoltageDelta"), transform.Diff(0)),
		decoder.MultiField(cellKeys, decoder.Path("cellVoltageAvg"), transform.Average(1000, true)),
	)

	return Model{
		Type:         "HMB",
		Name:         "Balcony Storage",
		Manufacturer: "Hame",
		PollCommand:  "cd=1",
		SubMessages:  []SubMessage{runtime, info, cells},
		Commands: []Command{
			{Name: "discharge-depth", Frame: "cd=11,md=%s"},
			{Name: "output-threshold", Frame: "cd=13,lv=%s"},
			{Name: "charging-mode", Frame: "cd=17,md=%s"},
			{Name: "reboot", Frame: "cd=23,rs=1"},
		},
	}
}

// hmgStorage describes the HMG-series grid-tied storage inverters.
func hmgStorage() Model {
	runtime := SubMessage{
		Name:     "runtimeInfo",
		Requires: []string{"pe", "bp"},
		Fields: []decoder.FieldDefinition{
			decoder.Field("pe", decoder.Path("batteryPercentage")),
			// Vendor reports discharge as positive; state uses the
			// grid convention (charge positive).
			decoder.FieldWith("bp", decoder.Path("batteryPower"), transform.Negate()),
			decoder.FieldWith("gi", decoder.Path("gridImportPower"), transform.Divide(10)),
			decoder.FieldWith("ge", decoder.Path("gridExportPower"), transform.Divide(10)),
			decoder.FieldWith("er", decoder.Path("totalEnergy"), transform.Chain(transform.Divide(10), transform.RoundTo(1))),
			decoder.FieldWith("wm", decoder.Path("workingMode"), transform.MapTableDefault("unknown",
				transform.MapEntry{Key: "0", Value: "manual"},
				transform.MapEntry{Key: "1", Value: "antiFeed"},
				transform.MapEntry{Key: "2", Value: "tradeMode"},
			)),
			decoder.FieldWith("ot", decoder.Path("outputActive"), transform.Boolean()),
			decoder.FieldWith("fs", decoder.Path("gridTied"), transform.BitBoolean(2)),
			decoder.FieldWith("sa", decoder.Path("scheduleDays"), transform.BitMaskToWeekday()),
			decoder.FieldWith("tm", decoder.Path("deviceTime"), transform.TimeString()),
		},
	}
	for slot, key := range []string{"a1", "a2"} {
		runtime.Fields = append(runtime.Fields, timePeriodFields(key, slot)...)
	}

	return Model{
		Type:         "HMG",
		Name:         "Storage Inverter",
		Manufacturer: "Hame",
		PollCommand:  "cd=1",
		SubMessages:  []SubMessage{runtime},
		Commands: []Command{
			{Name: "working-mode", Frame: "cd=5,wm=%s"},
			{Name: "reboot", Frame: "cd=23,rs=1"},
		},
	}
}

// timePeriodFields expands one pipe-delimited timer key into its five
// decoded sub-fields at timePeriods[slot].
func timePeriodFields(key string, slot int) []decoder.FieldDefinition {
	fields := make([]decoder.FieldDefinition, 0, 5)
	for _, sub := range []string{
		transform.PeriodStartTime,
		transform.PeriodEndTime,
		transform.PeriodWeekday,
		transform.PeriodPower,
		transform.PeriodEnabled,
	} {
		fields = append(fields, decoder.FieldWith(key,
			decoder.Path("timePeriods", slot, sub),
			transform.TimePeriodField(sub)))
	}
	return fields
}
