package manifest

import "github.com/dosanma1/nextdeploy/internal/routes"

// Table loads the manifest's page routes into a lookup table that resolves
// request paths the way the staged router does.
func (m *Manifest) Table() (*routes.Table, error) {
	t := routes.NewTable()
	for key, file := range m.Pages.HTML {
		t.AddExact(key, file)
	}
	for key, file := range m.Pages.SSR.NonDynamic {
		t.AddExact(key, file)
	}
	for key, r := range m.Pages.SSR.Dynamic {
		if err := t.AddDynamic(key, r.File, r.Regex); err != nil {
			return nil, err
		}
	}
	return t, nil
}
