package config

import (
	"context"
	"errors"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigService_Defaults(t *testing.T) {
	svc := NewConfigService(nil)

	assert.Equal(t, diagnosis.DefaultOptions(), svc.MatcherOptions())

	settings := svc.SessionSettings()
	assert.Equal(t, 500*time.Millisecond, settings.Debounce)
	assert.Equal(t, time.Hour, settings.TTL)

	items := svc.GetAllSystemConfigs()
	assert.Len(t, items, len(Keys()))
	for _, item := range items {
		assert.Equal(t, SourceDefault, item.Source, item.Key)
	}
}

func TestConfigService_DatabaseValues(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateSystemConfig(KeyMatcherTieBreak, "matched")
	factory.CreateSystemConfig(KeySessionDebounceMS, "250")

	svc := NewConfigService(tdb.DB)
	require.NoError(t, svc.Manager().Load(context.Background()))

	assert.Equal(t, diagnosis.TieBreakMatched, svc.MatcherOptions().TieBreak)
	assert.Equal(t, 250*time.Millisecond, svc.SessionSettings().Debounce)

	item, err := svc.GetSystemConfig(KeyMatcherTieBreak)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, item.Source)
}

func TestConfigService_SetPersistsAndNotifies(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	ctx := context.Background()

	svc := NewConfigService(tdb.DB)
	var changes []string
	svc.Manager().AddChangeNotifier(ConfigChangeFunc(func(key, oldValue, newValue string) {
		changes = append(changes, key+":"+oldValue+"->"+newValue)
	}))

	require.NoError(t, svc.SetSystemConfig(ctx, KeyMatcherMinPercentage, "25", ""))
	require.NoError(t, svc.SetSystemConfig(ctx, KeyMatcherMinPercentage, "30", "ambang"))
	assert.Equal(t, 30.0, svc.MatcherOptions().MinPercentage)
	assert.Equal(t, []string{"matcher.min_percentage:0->25", "matcher.min_percentage:25->30"}, changes)

	// 新的服务实例从数据库读取
	fresh := NewConfigService(tdb.DB)
	assert.Equal(t, 30.0, fresh.MatcherOptions().MinPercentage)
	item, err := fresh.GetSystemConfig(KeyMatcherMinPercentage)
	require.NoError(t, err)
	assert.Equal(t, "ambang", item.Description)

	require.NoError(t, svc.ResetSystemConfig(ctx, KeyMatcherMinPercentage))
	assert.Equal(t, 0.0, svc.MatcherOptions().MinPercentage)
	fresh.ClearCache()
	assert.Equal(t, 0.0, fresh.MatcherOptions().MinPercentage)
}

func TestConfigService_EnvOverride(t *testing.T) {
	svc := NewConfigService(nil)
	require.NoError(t, svc.SetSystemConfig(context.Background(), KeyMatcherEngine, "overlap", ""))

	t.Setenv("FISHDX_MATCHER_ENGINE", "datalog")
	assert.Equal(t, diagnosis.EngineDatalog, svc.MatcherOptions().Engine)

	item, err := svc.GetSystemConfig(KeyMatcherEngine)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, item.Source)
	assert.Equal(t, "FISHDX_SESSION_TTL_MINUTES", EnvKey(KeySessionTTLMinutes))
}

func TestConfigService_InvalidEnvFallsBackToDefault(t *testing.T) {
	svc := NewConfigService(nil)
	t.Setenv("FISHDX_MATCHER_TIE_BREAK", "coinflip")
	t.Setenv("FISHDX_SESSION_DEBOUNCE_MS", "soon")

	assert.Equal(t, diagnosis.TieBreakCode, svc.MatcherOptions().TieBreak)
	assert.Equal(t, 500*time.Millisecond, svc.SessionSettings().Debounce)
}

func TestConfigService_Validation(t *testing.T) {
	svc := NewConfigService(nil)
	ctx := context.Background()

	err := svc.SetSystemConfig(ctx, "matcher.colour", "blue", "")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	_, err = svc.GetSystemConfig("matcher.colour")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	cases := map[string]string{
		KeyMatcherMinPercentage: "120",
		KeyMatcherTieBreak:      "random",
		KeyMatcherWeighting:     "fuzzy",
		KeyMatcherEngine:        "prolog",
		KeyMatcherScoreScript:   "return nope",
		KeySessionDebounceMS:    "-5",
		KeySessionTTLMinutes:    "0",
	}
	for key, value := range cases {
		err := svc.SetSystemConfig(ctx, key, value, "")
		assert.True(t, errors.Is(err, ErrInvalidValue), "%s=%s: %v", key, value, err)
	}

	// script 权重需要先设置脚本
	err = svc.SetSystemConfig(ctx, KeyMatcherWeighting, "script", "")
	assert.True(t, errors.Is(err, ErrInvalidValue))

	require.NoError(t, svc.SetSystemConfig(ctx, KeyMatcherScoreScript, "return float64(matched) * 10, nil", ""))
	require.NoError(t, svc.SetSystemConfig(ctx, KeyMatcherWeighting, "script", ""))
	opts := svc.MatcherOptions()
	assert.Equal(t, diagnosis.WeightingScript, opts.Weighting)
	assert.NoError(t, opts.Validate())
}
