package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	gameinfomocks "github.com/ethpandaops/overlay-backend/internal/gameinfo/mocks"
	"github.com/ethpandaops/overlay-backend/internal/obs"
	"github.com/ethpandaops/overlay-backend/internal/testutil"
)

type recordingSink struct {
	mu     sync.Mutex
	inputs []string
	texts  []string
	err    error
}

func (r *recordingSink) SetText(_ context.Context, input, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inputs = append(r.inputs, input)
	r.texts = append(r.texts, text)

	return r.err
}

func (r *recordingSink) rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.texts...)
}

func intPtr(v int) *int { return &v }

func counterConfig(t *testing.T, cfg CounterConfig) CounterConfig {
	t.Helper()

	require.NoError(t, cfg.Validate())

	return cfg
}

func newTestSession(t *testing.T, cfg CounterConfig, sink TextSink, provider gameinfo.Provider) *Session {
	t.Helper()

	return New(context.Background(), testutil.NewTestLogger(), counterConfig(t, cfg), sink, provider)
}

func TestSession_RendersOnStart(t *testing.T) {
	sink := &recordingSink{}
	newTestSession(t, CounterConfig{TextSource: "Exits", Start: 3}, sink, nil)

	assert.Equal(t, []string{"Exits: 3"}, sink.rendered())
	assert.Equal(t, []string{"Exits"}, sink.inputs)
}

func TestSession_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		cfg      CounterConfig
		commands []string
		value    int
		rendered []string
	}{
		{
			name:     "increment with max",
			cfg:      CounterConfig{TextSource: "Exits", Start: 4, MaxEnabled: true, Max: intPtr(5)},
			commands: []string{CommandIncrement, CommandIncrement},
			value:    5,
			rendered: []string{"Exits: 4/5", "Exits: 5/5"},
		},
		{
			name:     "decrement stops at zero",
			cfg:      CounterConfig{TextSource: "Exits", Start: 1},
			commands: []string{CommandDecrement, CommandDecrement},
			value:    0,
			rendered: []string{"Exits: 1", "Exits: 0"},
		},
		{
			name:     "reset always renders",
			cfg:      CounterConfig{TextSource: "Exits"},
			commands: []string{CommandReset, CommandReset},
			value:    0,
			rendered: []string{"Exits: 0", "Exits: 0", "Exits: 0"},
		},
		{
			name:     "custom prefix and delimiter",
			cfg:      CounterConfig{TextSource: "Exits", Prefix: new(string), Suffix: " exits", MaxEnabled: true, Max: intPtr(96), MaxDelimiter: strPtr(" of ")},
			commands: []string{CommandIncrement},
			value:    1,
			rendered: []string{"0 of 96 exits", "1 of 96 exits"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := newTestSession(t, tt.cfg, sink, nil)

			for _, cmd := range tt.commands {
				require.NoError(t, s.Dispatch(context.Background(), cmd))
			}

			assert.Equal(t, tt.value, s.State().Value)
			assert.Equal(t, tt.rendered, sink.rendered())
		})
	}
}

func strPtr(v string) *string { return &v }

func TestSession_UnknownCommand(t *testing.T) {
	s := newTestSession(t, CounterConfig{}, nil, nil)

	err := s.Dispatch(context.Background(), "counter.explode")
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.False(t, s.Known("counter.explode"))
	assert.True(t, s.Known(CommandReset))
}

func TestSession_Commands(t *testing.T) {
	s := newTestSession(t, CounterConfig{}, nil, nil)

	assert.Equal(t, []string{
		CommandDecrement,
		CommandIncrement,
		CommandReset,
		CommandGameInfoRefresh,
	}, s.Commands())
}

func TestSession_SinkFailureDoesNotFailCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not connected", err: obs.ErrNotConnected},
		{name: "request failed", err: &obs.RequestError{RequestType: "SetInputSettings", Code: 600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{err: tt.err}
			s := newTestSession(t, CounterConfig{TextSource: "Exits"}, sink, nil)

			require.NoError(t, s.Dispatch(context.Background(), CommandIncrement))
			assert.Equal(t, 1, s.State().Value)
		})
	}
}

func TestSession_NoTextSource(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, CounterConfig{}, sink, nil)

	require.NoError(t, s.Dispatch(context.Background(), CommandIncrement))
	assert.Empty(t, sink.rendered())
	assert.Equal(t, "Exits: 1", s.State().Display)
}

func TestSession_State(t *testing.T) {
	s := newTestSession(t, CounterConfig{Start: 2, MaxEnabled: true, Max: intPtr(10)}, nil, nil)

	state := s.State()
	assert.Equal(t, 2, state.Value)
	require.NotNil(t, state.Max)
	assert.Equal(t, 10, *state.Max)
	assert.Equal(t, "Exits: 2/10", state.Display)

	s = newTestSession(t, CounterConfig{}, nil, nil)
	assert.Nil(t, s.State().Max)
}

func TestSession_Reconfigure(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, CounterConfig{TextSource: "Exits"}, sink, nil)

	require.NoError(t, s.Dispatch(context.Background(), CommandIncrement))
	require.NoError(t, s.Dispatch(context.Background(), CommandIncrement))

	s.Reconfigure(context.Background(), counterConfig(t, CounterConfig{
		TextSource: "Exits",
		Start:      7,
		MaxEnabled: true,
		Max:        intPtr(96),
	}))

	assert.Equal(t, 7, s.State().Value)
	assert.Equal(t, "Exits: 7/96", sink.rendered()[len(sink.rendered())-1])
}

func TestSession_Sync(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, CounterConfig{TextSource: "Exits", Start: 5}, sink, nil)

	s.Sync(context.Background())

	assert.Equal(t, []string{"Exits: 5", "Exits: 5"}, sink.rendered())
	assert.Equal(t, 5, s.State().Value)
}

func TestSession_GameInfoRefresh(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestSession(t, CounterConfig{}, nil, nil)

		require.ErrorIs(t, s.Dispatch(context.Background(), CommandGameInfoRefresh), ErrGameInfoDisabled)
	})

	t.Run("refreshes provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		provider := gameinfomocks.NewMockProvider(ctrl)
		provider.EXPECT().Refresh(gomock.Any()).Return(&gameinfo.Snapshot{GameName: "Super Mario World"}, nil).Times(1)

		s := newTestSession(t, CounterConfig{}, nil, provider)
		require.NoError(t, s.Dispatch(context.Background(), CommandGameInfoRefresh))
	})

	t.Run("surfaces data errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		provider := gameinfomocks.NewMockProvider(ctrl)
		provider.EXPECT().Refresh(gomock.Any()).Return(nil, gameinfo.ErrMalformedRecord).Times(1)

		s := newTestSession(t, CounterConfig{}, nil, provider)

		err := s.Dispatch(context.Background(), CommandGameInfoRefresh)
		require.ErrorIs(t, err, gameinfo.ErrMalformedRecord)
		assert.True(t, gameinfo.IsDataError(err))
	})
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, CounterConfig{TextSource: "Exits", MaxEnabled: true, Max: intPtr(50)}, sink, nil)

	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, s.Dispatch(context.Background(), CommandIncrement))
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, s.State().Value)
	// One initial render plus one per effective increment.
	assert.Len(t, sink.rendered(), 51)
	assert.Equal(t, "Exits: 50/50", sink.rendered()[50])
}

func TestCounterConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      CounterConfig
		expectError bool
	}{
		{name: "defaults", config: CounterConfig{}},
		{name: "start above range", config: CounterConfig{Start: 1000}, expectError: true},
		{name: "negative start", config: CounterConfig{Start: -1}, expectError: true},
		{name: "max above range", config: CounterConfig{Max: intPtr(1000)}, expectError: true},
		{name: "start above enabled max", config: CounterConfig{Start: 10, MaxEnabled: true, Max: intPtr(5)}, expectError: true},
		{name: "start above disabled max", config: CounterConfig{Start: 10, Max: intPtr(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Exits: ", *tt.config.Prefix)
			assert.Equal(t, "/", *tt.config.MaxDelimiter)
			assert.NotNil(t, tt.config.Max)
		})
	}
}
