package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/schema"
)

func TestCurrentVersionEmptyBackend(t *testing.T) {
	runner := Runner{Backend: backendtest.New(), Compiler: schema.DatalogCompiler{}}
	version, err := runner.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), version)
}

func TestUpCreatesAllSevenRelations(t *testing.T) {
	fake := backendtest.New()
	runner := Runner{Backend: fake, Compiler: schema.DatalogCompiler{}}

	require.NoError(t, runner.Up(context.Background()))

	for _, rel := range schema.CoreRelations {
		exists, err := fake.RelationExists(context.Background(), rel.Name)
		require.NoError(t, err)
		assert.True(t, exists, rel.Name)
	}
	version, err := runner.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), version)
}

func TestUpIsIdempotent(t *testing.T) {
	fake := backendtest.New()
	runner := Runner{Backend: fake, Compiler: schema.DatalogCompiler{}}
	ctx := context.Background()

	require.NoError(t, runner.Up(ctx))
	v1, err := runner.CurrentVersion(ctx)
	require.NoError(t, err)

	// Second run creates nothing and reports the same version.
	require.NoError(t, runner.Up(ctx))
	v2, err := runner.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, uint32(1), v2)
}

func TestPartialSchemaReportsVersionZero(t *testing.T) {
	fake := backendtest.New()
	ctx := context.Background()

	// Only some relations present: still version 0.
	created, err := fake.TryCreateRelation(ctx, schema.Modules, "")
	require.NoError(t, err)
	assert.True(t, created)

	runner := Runner{Backend: fake, Compiler: schema.DatalogCompiler{}}
	version, err := runner.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), version)
}

func TestTryCreateRelationIdempotentOnFake(t *testing.T) {
	fake := backendtest.New()
	ctx := context.Background()

	created, err := fake.TryCreateRelation(ctx, schema.Calls, "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = fake.TryCreateRelation(ctx, schema.Calls, "")
	require.NoError(t, err)
	assert.False(t, created)
}
