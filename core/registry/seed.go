package registry

import "github.com/chargeflow/chargeflow/core/model"

// modelPowerKW maps known charge point models to their rated power.
// Unknown models fall back to 22 kW AC.
var modelPowerKW = map[string]float64{
	"AC Type-2":       22.0,
	"DC Fast":         50.0,
	"Wallbox":         7.4,
	"DC Ultra":        150.0,
	"Supercharger":    250.0,
	"Terra AC":        22.0,
	"Terra 54":        50.0,
	"VersiCharge":     11.0,
	"Sicharge D":      300.0,
	"KeContact P30":   22.0,
	"EVlink Wallbox":  22.0,
	"Troniq Modular":  175.0,
	"Pulsar Plus":     7.4,
	"DC Wallbox":      25.0,
	"Supercharger V3": 250.0,
}

// PowerForModel returns the rated power for a charge point model.
func PowerForModel(m string) float64 {
	if p, ok := modelPowerKW[m]; ok {
		return p
	}
	return 22.0
}

// Seed loads a default set of vehicles and charge points, one EVSE per
// lifecycle status so every transition is reachable out of the box.
func Seed(r *MemoryRegistry) error {
	vehicles := []model.Vehicle{
		{ID: "EV-001", Brand: "Tesla", Model: "Model 3", BatteryKWh: 60, CurrentSoC: 40, TargetSoC: 90},
		{ID: "EV-002", Brand: "Renault", Model: "ZOE", BatteryKWh: 45, CurrentSoC: 55, TargetSoC: 100},
		{ID: "EV-003", Brand: "Hyundai", Model: "Kona", BatteryKWh: 64, CurrentSoC: 20, TargetSoC: 80},
		{ID: "EV-004", Brand: "Volkswagen", Model: "ID.4", BatteryKWh: 77, CurrentSoC: 50, TargetSoC: 100},
		{ID: "EV-005", Brand: "BMW", Model: "i4 eDrive40", BatteryKWh: 83.9, CurrentSoC: 30, TargetSoC: 85},
		{ID: "EV-006", Brand: "Mercedes-Benz", Model: "EQB 300", BatteryKWh: 66.5, CurrentSoC: 25, TargetSoC: 90},
		{ID: "EV-007", Brand: "Nissan", Model: "Leaf e+", BatteryKWh: 62, CurrentSoC: 60, TargetSoC: 100},
		{ID: "EV-008", Brand: "BYD", Model: "Atto 3", BatteryKWh: 60.5, CurrentSoC: 45, TargetSoC: 95},
	}
	for _, v := range vehicles {
		if err := r.AddVehicle(v); err != nil {
			return err
		}
	}

	evses := []model.EVSE{
		{Name: "Marina AC", Brand: "ZES", Model: "AC Type-2", Vendor: "Vestel", Latitude: 40.7142, Longitude: 29.9235, Status: model.StatusAvailable},
		{Name: "CaddeBostan DC", Brand: "Voltrun", Model: "DC Fast", Vendor: "Siemens", Latitude: 40.7325, Longitude: 29.9550, Status: model.StatusReserved},
		{Name: "Kartepe Park", Brand: "Sharz", Model: "Wallbox", Vendor: "ABB", Latitude: 40.7487, Longitude: 29.9805, Status: model.StatusOccupied},
		{Name: "Gebze Depot", Brand: "Esarj", Model: "DC Ultra", Vendor: "Delta", Latitude: 40.7905, Longitude: 29.9110, Status: model.StatusUnavailable},
		{Name: "Pendik East", Brand: "Tesla", Model: "Supercharger", Vendor: "Tesla", Latitude: 40.7202, Longitude: 29.9652, Status: model.StatusFaulted},
	}
	for _, e := range evses {
		e.MaxPowerKW = PowerForModel(e.Model)
		if _, err := r.Add(e); err != nil {
			return err
		}
	}
	return nil
}
