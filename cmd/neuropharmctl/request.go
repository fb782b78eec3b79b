package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"neuropharm/internal/model"
)

// loadSimulationRequest reads a single simulation request from a JSON file.
// Parsing goes through a generic map so assumption toggles can be validated
// by name instead of silently dropping misspelled keys.
func loadSimulationRequest(path string) (model.SimulationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SimulationRequest{}, fmt.Errorf("read request file: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.SimulationRequest{}, fmt.Errorf("parse request file %s: %w", path, err)
	}
	req, err := requestFromMap(raw)
	if err != nil {
		return model.SimulationRequest{}, fmt.Errorf("request file %s: %w", path, err)
	}
	return req, nil
}

// loadSimulationRequests reads a JSON array of simulation requests.
func loadSimulationRequests(path string) ([]model.SimulationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requests file: %w", err)
	}
	var rawList []map[string]any
	if err := json.Unmarshal(data, &rawList); err != nil {
		return nil, fmt.Errorf("parse requests file %s: %w", path, err)
	}
	requests := make([]model.SimulationRequest, 0, len(rawList))
	for i, raw := range rawList {
		req, err := requestFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("requests file %s entry %d: %w", path, i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func requestFromMap(raw map[string]any) (model.SimulationRequest, error) {
	var req model.SimulationRequest

	receptorsRaw, ok := raw["receptors"].(map[string]any)
	if !ok || len(receptorsRaw) == 0 {
		return req, fmt.Errorf("missing receptors")
	}
	req.Receptors = make(map[string]model.ReceptorSpec, len(receptorsRaw))
	for id, specRaw := range receptorsRaw {
		specMap, ok := specRaw.(map[string]any)
		if !ok {
			return req, fmt.Errorf("receptor %s: expected an object", id)
		}
		mechanism, err := model.ParseMechanism(asString(specMap["mechanism"], string(model.MechanismAgonist)))
		if err != nil {
			return req, fmt.Errorf("receptor %s: %w", id, err)
		}
		req.Receptors[id] = model.ReceptorSpec{
			ReceptorID: asString(specMap["receptor_id"], id),
			Occupancy:  asFloat64(specMap["occupancy"], 0),
			Mechanism:  mechanism,
		}
	}

	dosing, err := model.ParseDosing(asString(raw["dosing"], string(model.DosingAcute)))
	if err != nil {
		return req, err
	}
	req.Dosing = dosing

	if togglesRaw, ok := raw["assumptions"].(map[string]any); ok {
		toggles := make(map[string]bool, len(togglesRaw))
		for name, value := range togglesRaw {
			toggles[name] = asBool(value, false)
		}
		set, err := model.ParseAssumptions(toggles)
		if err != nil {
			return req, err
		}
		req.Assumptions = set
	}

	req.PVTWeight = asFloat64(raw["pvt_weight"], 0)
	return req, nil
}

// buildSimulationRequest assembles a single-receptor request from CLI flags.
func buildSimulationRequest(receptor string, occupancy float64, mechanism, dosing string, pvtWeight float64, assumptionsCSV string) (model.SimulationRequest, error) {
	var req model.SimulationRequest

	mech, err := model.ParseMechanism(mechanism)
	if err != nil {
		return req, err
	}
	dose, err := model.ParseDosing(dosing)
	if err != nil {
		return req, err
	}
	set, err := parseAssumptionList(assumptionsCSV)
	if err != nil {
		return req, err
	}

	req.Receptors = map[string]model.ReceptorSpec{
		receptor: {ReceptorID: receptor, Occupancy: occupancy, Mechanism: mech},
	}
	req.Dosing = dose
	req.Assumptions = set
	req.PVTWeight = pvtWeight
	return req, nil
}

func parseAssumptionList(csv string) (model.AssumptionSet, error) {
	toggles := make(map[string]bool)
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		toggles[name] = true
	}
	return model.ParseAssumptions(toggles)
}

func asString(value any, fallback string) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fallback
}

func asFloat64(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	}
	return fallback
}

func asBool(value any, fallback bool) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}
