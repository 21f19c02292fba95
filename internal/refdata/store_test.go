package refdata

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/medbot/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeWorkbook(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{
		Medicines: writeWorkbook(t, dir, "medicines.xlsx", [][]interface{}{
			{"Name", "Contains", "ProductUses", "SideEffect"},
			{"👉 Andol  650", "Paracetamol (650mg)", "Pain relief", "Nausea"},
			{"andol 650", "duplicate", "", ""},
			{"Avastin 400mg Injection", "Bevacizumab (400mg)", "Cancer", "nan"},
		}),
		Alternatives: writeFile(t, dir, "alternatives.csv",
			"drug_name,price,description,reason\n"+
				"Dolo 650,\"Rs. 1,030\",Fever reducer,Same salt\n"+
				"Calpol 650,n/a,,Same salt\n"),
		Descriptions: writeFile(t, dir, "description.csv",
			"\ufeffDisease,Description\nFungal infection,Fungal infection is common.\n"),
		Medications: writeFile(t, dir, "medications.csv",
			"Disease,Medication\nFungal infection,\"['Antifungal Cream', 'Fluconazole']\"\n"),
		Precautions: writeFile(t, dir, "precautions_df.csv",
			"Unnamed: 0,Disease,Precaution_1,Precaution_2,Precaution_3\n0,Fungal infection,bath twice,,keep dry\n"),
		Workouts: writeFile(t, dir, "workout_df.csv",
			"disease,workout\nFungal infection,Avoid sugary foods\nFungal infection,Stay hydrated\n"),
		Diets: filepath.Join(dir, "missing.csv"),
	}

	s := Load(cfg, nil)

	assert.Equal(t, []string{"andol 650", "avastin 400mg injection"}, s.MedicineNames())
	andol, ok := s.Medicine("ANDOL 650")
	require.True(t, ok)
	v, ok := andol.Field(model.ColumnContains)
	assert.True(t, ok)
	assert.Equal(t, "Paracetamol (650mg)", v)

	avastin, _ := s.Medicine("avastin 400mg injection")
	_, ok = avastin.Field(model.ColumnSideEffect)
	assert.False(t, ok)

	alts := s.Alternatives()
	require.Len(t, alts, 2)
	assert.Equal(t, 1030.0, alts[0].Price)
	assert.True(t, math.IsInf(alts[1].Price, 1))
	assert.Equal(t, "No description available", alts[1].Description)

	d := s.Diseases()
	assert.Equal(t, "Fungal infection is common.", d.Descriptions["fungal infection"])
	assert.Equal(t, "['Antifungal Cream', 'Fluconazole']", d.Medications["fungal infection"])
	assert.Equal(t, []string{"bath twice", "keep dry"}, d.Precautions["fungal infection"])
	assert.Equal(t, []string{"Avoid sugary foods", "Stay hydrated"}, d.Workouts["fungal infection"])

	assert.False(t, s.Available(CapabilityDiets))
	assert.True(t, s.Available(CapabilityMedicines))
	assert.Equal(t, []string{"diets"}, s.UnavailableNames())
}

func TestLoadMissingColumnMarksUnavailable(t *testing.T) {
	dir := t.TempDir()
	s := Load(Config{
		Descriptions: writeFile(t, dir, "description.csv", "Disease,Text\nFlu,x\n"),
	}, nil)

	err := s.Unavailable()[CapabilityDescriptions]
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description")
	assert.ErrorIs(t, s.Unavailable()[CapabilityMedicines], ErrNotConfigured)
}

func TestNewWithOptions(t *testing.T) {
	s := New(
		WithMedicines(model.MedicineRecord{Name: " Andol "}, model.MedicineRecord{Name: "nan"}),
		WithDiseaseTables(DiseaseTables{Descriptions: map[string]string{"  Flu ": "Viral"}}),
	)

	assert.Equal(t, []string{"andol"}, s.MedicineNames())
	assert.Equal(t, "Viral", s.Diseases().Descriptions["flu"])
	assert.True(t, s.Available(CapabilityDescriptions))
	assert.False(t, s.Available(CapabilityAlternatives))
	assert.ErrorIs(t, s.Unavailable()[CapabilityAlternatives], ErrNotLoaded)
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 30.0, ParsePrice("Rs. 30"))
	assert.Equal(t, 1250.5, ParsePrice("₹1,250.5"))
	assert.Equal(t, 99.0, ParsePrice(" INR 99 "))
	assert.True(t, math.IsInf(ParsePrice(""), 1))
	assert.True(t, math.IsInf(ParsePrice("free"), 1))
	assert.True(t, math.IsInf(ParsePrice("nan"), 1))
}
