/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

func Test_Provide(t *testing.T) {
	require := require.New(t)

	t.Run("must register the normalized default namespace", func(t *testing.T) {
		repo, err := Provide(nil, "//root/interop/")
		require.NoError(err)
		require.Equal("root/interop", repo.DefaultNamespace())
		require.True(repo.ValidateNamespace("root/interop"))
		require.Equal([]string{"root/interop"}, repo.Namespaces())
	})

	t.Run("must be error on an empty default namespace", func(t *testing.T) {
		for _, ns := range []string{"", "/", "///"} {
			_, err := Provide(nil, ns)
			require.ErrorIs(err, cim.ErrInvalidParameterError, "namespace «%s»", ns)
		}
	})

	t.Run("a nil connection must become the null connection", func(t *testing.T) {
		repo, err := ProvideStandalone("root/cimv2")
		require.NoError(err)
		require.True(strings.HasPrefix(repo.ConnID(), "null:"))
	})

	t.Run("the backing connection id must come through", func(t *testing.T) {
		conn := newTestConn()
		repo, err := Provide(conn, "root/cimv2")
		require.NoError(err)
		require.Equal(conn.ConnID(), repo.ConnID())
	})
}

func Test_NullConnection(t *testing.T) {
	require := require.New(t)

	t.Run("every null connection must carry its own id", func(t *testing.T) {
		c1, c2 := ProvideNullConnection(), ProvideNullConnection()
		require.True(strings.HasPrefix(c1.ConnID(), "null:"))
		require.NotEqual(c1.ConnID(), c2.ConnID())
	})

	conn := ProvideNullConnection()

	t.Run("lookups must always miss", func(t *testing.T) {
		_, err := conn.GetClass("root/cimv2", "CIM_Foo", cimrepo.FullClassView())
		require.ErrorIs(err, cim.ErrNotFoundError)

		_, err = conn.GetQualifier("root/cimv2", "Key")
		require.ErrorIs(err, cim.ErrNotFoundError)

		qq, err := conn.EnumerateQualifiers("root/cimv2")
		require.NoError(err)
		require.Empty(qq)
	})

	t.Run("resolution must run locally", func(t *testing.T) {
		rc, err := conn.ResolveClass("root/cimv2",
			cim.NewClass("CIM_Foo", "").AddProperty(cim.NewProperty("P1", cim.Type_string)),
			newTestScope())
		require.NoError(err)
		p, _ := rc.Properties.Get("P1")
		require.Equal("CIM_Foo", p.ClassOrigin)
	})
}
