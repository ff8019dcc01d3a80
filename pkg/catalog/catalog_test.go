package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
)

func testDefinition() catalog.Definition {
	return catalog.Definition{
		Permissions: map[string]catalog.Permission{
			"access":  {Label: "Access", Default: true},
			"admin":   {Label: "Admin", Admin: true},
			"billing": {Label: "Billing"},
		},
		Plans: []catalog.Plan{
			{ID: "starter", Name: "Starter", PriceIDs: []string{"price_starter"}},
			{ID: "pro", Name: "Pro", PriceIDs: []string{"price_pro", "price_pro_usage"}},
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := catalog.New(context.Background(), catalog.NewMemorySource(testDefinition()))
	require.NoError(t, err)

	assert.Equal(t, "access", c.DefaultGroup())
	assert.Equal(t, []string{"access", "admin", "billing"}, c.Groups())
	assert.Equal(t, []string{"admin"}, c.AdminGroups())
	assert.Equal(t, []string{"access", "admin"}, c.InitialGroups())
	assert.True(t, c.IsAdminGroup("admin"))
	assert.False(t, c.IsAdminGroup("billing"))
	assert.False(t, c.IsAdminGroup("missing"))

	p, ok := c.Permission("billing")
	require.True(t, ok)
	assert.Equal(t, "Billing", p.Label)

	plans := c.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, "starter", plans[0].ID)
}

func TestFromDefinition_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		edit func(*catalog.Definition)
		want error
	}{
		{
			name: "no default",
			edit: func(d *catalog.Definition) {
				d.Permissions["access"] = catalog.Permission{Label: "Access"}
			},
			want: catalog.ErrNoDefaultGroup,
		},
		{
			name: "two defaults",
			edit: func(d *catalog.Definition) {
				d.Permissions["billing"] = catalog.Permission{Default: true}
			},
			want: catalog.ErrMultipleDefaultGroups,
		},
		{
			name: "dotted group name",
			edit: func(d *catalog.Definition) {
				d.Permissions["a.b"] = catalog.Permission{}
			},
			want: catalog.ErrInvalidGroupName,
		},
		{
			name: "operator group name",
			edit: func(d *catalog.Definition) {
				d.Permissions["$set"] = catalog.Permission{}
			},
			want: catalog.ErrInvalidGroupName,
		},
		{
			name: "plan without prices",
			edit: func(d *catalog.Definition) {
				d.Plans = append(d.Plans, catalog.Plan{ID: "empty"})
			},
			want: catalog.ErrInvalidPlan,
		},
		{
			name: "duplicate plan",
			edit: func(d *catalog.Definition) {
				d.Plans = append(d.Plans, d.Plans[0])
			},
			want: catalog.ErrDuplicatePlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			def := testDefinition()
			tt.edit(&def)
			_, err := catalog.FromDefinition(def)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCatalog_Lookups(t *testing.T) {
	t.Parallel()

	c, err := catalog.FromDefinition(testDefinition())
	require.NoError(t, err)

	t.Run("known plan", func(t *testing.T) {
		t.Parallel()
		p, err := c.Plan("pro")
		require.NoError(t, err)
		assert.Equal(t, []string{"price_pro", "price_pro_usage"}, p.PriceIDs)
	})

	t.Run("unknown plan is invalid argument", func(t *testing.T) {
		t.Parallel()
		_, err := c.Plan("enterprise")
		require.ErrorIs(t, err, catalog.ErrUnknownPlan)
		assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	})

	t.Run("group validation", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, c.ValidateGroups([]string{"admin", "billing"}))
		require.NoError(t, c.ValidateGroups(nil))
		err := c.ValidateGroups([]string{"admin", "owner"})
		require.ErrorIs(t, err, catalog.ErrUnknownPermission)
		assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		t.Parallel()
		groups := c.Groups()
		groups[0] = "mutated"
		assert.Equal(t, "access", c.Groups()[0])
	})
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	doc := `
permissions:
  access:
    label: Access
    default: true
  admin:
    label: Admin
    admin: true
plans:
  - id: starter
    name: Starter
    prices: [price_starter]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := catalog.New(context.Background(), catalog.FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "access", c.DefaultGroup())
	p, err := c.Plan("starter")
	require.NoError(t, err)
	assert.Equal(t, []string{"price_starter"}, p.PriceIDs)

	_, err = catalog.New(context.Background(), catalog.FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	require.ErrorIs(t, err, catalog.ErrSourceRead)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := catalog.Parse([]byte("permissions: [not, a, map]"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, catalog.ErrSourceRead))
}
