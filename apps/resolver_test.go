package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spocdev/spoc/hooks"
	"github.com/spocdev/spoc/modules"
)

func appsByMode() map[string][]string {
	return map[string][]string{
		"production":  {"auth"},
		"staging":     {"billing"},
		"development": {"demo"},
	}
}

func TestExpandApps(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		explicit []string
		want     []string
	}{
		{"production", Production, nil, []string{"auth"}},
		{"staging", Staging, nil, []string{"auth", "billing"}},
		{"development", Development, nil, []string{"auth", "billing", "demo"}},
		{"explicit first", Development, []string{"custom"}, []string{"custom", "auth", "billing", "demo"}},
		{"dedupe keeps first", Development, []string{"demo"}, []string{"demo", "auth", "billing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandApps(tt.mode, appsByMode(), tt.explicit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeValid(t *testing.T) {
	assert.True(t, Production.Valid())
	assert.True(t, Staging.Valid())
	assert.True(t, Development.Valid())
	assert.False(t, Mode("custom").Valid())
	assert.False(t, Mode("").Valid())
}

func TestRegister_RegistersEveryAppSlotPair(t *testing.T) {
	var order []string
	newSlot := func(name string) modules.Static {
		return modules.Static{
			{Name: "initialize", Value: func() error {
				order = append(order, name)
				return nil
			}},
		}
	}

	reg := modules.NewRegistry()
	for _, app := range []string{"auth", "demo"} {
		reg.Provide(app+".models", newSlot(app+".models"))
		reg.Provide(app+".views", newSlot(app+".views"))
	}

	imp := modules.New(modules.WithRegistry(reg))
	resolver := NewResolver(Schema{
		Slots:        []string{"models", "views"},
		Dependencies: map[string][]string{"views": {"models"}},
	}, imp)

	require.NoError(t, resolver.Register([]string{"auth", "demo"}))
	require.NoError(t, imp.Startup())

	assert.Equal(t, []string{"auth.models", "demo.models", "auth.views", "demo.views"}, order)

	info := imp.Info("auth.views")
	require.NotNil(t, info)
	assert.Equal(t, []string{"auth.models"}, info.Dependencies)
}

func TestRegister_SlotHooksBoundAsPatterns(t *testing.T) {
	reg := modules.NewRegistry()
	reg.Provide("auth.models", modules.Static{})
	reg.Provide("demo.models", modules.Static{})

	imp := modules.New(modules.WithRegistry(reg))

	var fired []string
	resolver := NewResolver(Schema{
		Slots: []string{"models"},
		Hooks: map[string]hooks.Hook{
			"models": {Startup: func(objects []any) error {
				fired = append(fired, "startup")
				return nil
			}},
		},
	}, imp)

	require.NoError(t, resolver.Register([]string{"auth", "demo"}))
	require.NoError(t, imp.Startup())

	// One firing per matching module.
	assert.Len(t, fired, 2)
}

func TestRegister_LooseModeSkipsMissingApps(t *testing.T) {
	reg := modules.NewRegistry()
	reg.Provide("auth.models", modules.Static{})

	imp := modules.New(modules.WithRegistry(reg), modules.WithMode(modules.Loose))
	resolver := NewResolver(Schema{Slots: []string{"models"}}, imp)

	require.NoError(t, resolver.Register([]string{"auth", "ghost"}))
	assert.True(t, imp.Has("auth.models"))
	assert.False(t, imp.Has("ghost.models"))
}
