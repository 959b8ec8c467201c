package repository

import (
	"path/filepath"
	"testing"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/testutil"
	"github.com/Temikus/esque/internal/utils"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, cfg config.FileConfig) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esque.yml")
	require.NoError(t, config.WriteConfig(path, cfg))
	return path
}

func TestContextRepository_LoadFromFile(t *testing.T) {
	t.Parallel()
	utils.InitLogger()
	path := writeTestConfig(t, config.FileConfig{
		CurrentContext: "local",
		Contexts: []config.ContextConfig{
			{Name: "local", Brokers: []string{"localhost:9092"}},
			{Name: "prod", Brokers: []string{"b1:9092"}},
		},
	})

	repo := NewContextRepository(path, &testutil.FakeFactory{})
	require.NoError(t, repo.LoadFromFile())

	_, ok := repo.GetClient("local")
	require.True(t, ok)
	_, ok = repo.GetClient("prod")
	require.True(t, ok)

	cur, ok := repo.CurrentContext()
	require.True(t, ok)
	require.Equal(t, "local", cur.Name)

	require.Len(t, repo.FindAll(), 2)
}

func TestContextRepository_ReloadDropsRemovedContexts(t *testing.T) {
	t.Parallel()
	utils.InitLogger()
	path := writeTestConfig(t, config.FileConfig{
		Contexts: []config.ContextConfig{
			{Name: "local", Brokers: []string{"localhost:9092"}},
			{Name: "stale", Brokers: []string{"old:9092"}},
		},
	})

	repo := NewContextRepository(path, &testutil.FakeFactory{})
	require.NoError(t, repo.LoadFromFile())

	require.NoError(t, config.WriteConfig(path, config.FileConfig{
		Contexts: []config.ContextConfig{{Name: "local", Brokers: []string{"localhost:9092"}}},
	}))
	require.NoError(t, repo.LoadFromFile())

	_, ok := repo.GetClient("stale")
	require.False(t, ok)
	_, ok = repo.GetClient("local")
	require.True(t, ok)
}

func TestContextRepository_SaveAndDelete(t *testing.T) {
	t.Parallel()
	utils.InitLogger()
	path := writeTestConfig(t, config.FileConfig{Contexts: []config.ContextConfig{}})

	repo := NewContextRepository(path, &testutil.FakeFactory{})
	require.NoError(t, repo.LoadFromFile())

	require.NoError(t, repo.Save(config.ContextConfig{Name: "new", Brokers: []string{"n:9092"}}))
	_, ok := repo.FindByName("new")
	require.True(t, ok)
	_, ok = repo.GetClient("new")
	require.True(t, ok)

	// persisted
	read, err := config.ReadConfig(path)
	require.NoError(t, err)
	require.Len(t, read.Contexts, 1)

	require.NoError(t, repo.Delete("new"))
	_, ok = repo.GetClient("new")
	require.False(t, ok)
	require.Error(t, repo.Delete("new"))
}

func TestContextRepository_SwitchContext(t *testing.T) {
	t.Parallel()
	utils.InitLogger()
	path := writeTestConfig(t, config.FileConfig{
		CurrentContext: "local",
		Contexts: []config.ContextConfig{
			{Name: "local", Brokers: []string{"localhost:9092"}},
			{Name: "prod", Brokers: []string{"b1:9092"}},
		},
	})

	repo := NewContextRepository(path, &testutil.FakeFactory{})
	require.NoError(t, repo.LoadFromFile())

	require.Error(t, repo.SwitchContext("unknown"))

	require.NoError(t, repo.SwitchContext("prod"))
	cur, ok := repo.CurrentContext()
	require.True(t, ok)
	require.Equal(t, "prod", cur.Name)

	// selection survives a reload
	read, err := config.ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "prod", read.CurrentContext)
}
