/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

const testNS = "root/cimv2"

// newTestRepo provides a standalone repository with the default namespace
// registered and the Key qualifier declared in it.
func newTestRepo(t *testing.T) cimrepo.IRepository {
	t.Helper()
	repo, err := ProvideStandalone(testNS)
	require.NoError(t, err)
	require.NoError(t, repo.SetQualifier(testNS,
		cim.NewQualifierDecl("Key", cim.Type_boolean, false, cim.Scope_Property|cim.Scope_Reference)))
	return repo
}

func keyProperty(name string) *cim.Property {
	return cim.NewProperty(name, cim.Type_string, cim.NewQualifier("Key", cim.Type_boolean, true))
}

func fooClass() *cim.Class {
	return cim.NewClass("CIM_Foo", "").
		AddProperty(
			keyProperty("InstanceID"),
			cim.NewProperty("Caption", cim.Type_string),
		)
}

func Test_RepositoryScenario(t *testing.T) {
	require := require.New(t)

	repo, err := ProvideStandalone("root/cimv2")
	require.NoError(err)
	require.Equal("root/cimv2", repo.DefaultNamespace())
	require.True(repo.ValidateNamespace("root/cimv2"))
	require.True(repo.ValidateNamespace("ROOT/CimV2"), "namespace names are case insensitive")

	t.Run("must be ok to declare the Key qualifier", func(t *testing.T) {
		require.NoError(repo.SetQualifier("root/cimv2",
			cim.NewQualifierDecl("Key", cim.Type_boolean, false, cim.Scope_Property|cim.Scope_Reference)))
	})

	t.Run("must be ok to create a class with a key property", func(t *testing.T) {
		require.NoError(repo.CreateClass("root/cimv2", fooClass()))
	})

	var path *cim.Path
	t.Run("must derive the path of an instance created without one", func(t *testing.T) {
		inst := cim.NewInstance("CIM_Foo").
			SetProperty("InstanceID", cim.Type_string, "Foo1").
			SetProperty("Caption", cim.Type_string, "first")

		p, err := repo.CreateInstance("root/cimv2", inst)
		require.NoError(err)
		require.Equal("CIM_Foo", p.ClassName)
		require.Equal("root/cimv2", p.Namespace)
		v, ok := p.KeyBindings.Get("InstanceID")
		require.True(ok)
		require.Equal("Foo1", v)
		path = p
	})

	t.Run("must get back a class equal to the created one", func(t *testing.T) {
		got, err := repo.GetClass("root/cimv2", "CIM_Foo", cimrepo.FullClassView())
		require.NoError(err)

		want := fooClass()
		for _, n := range want.Properties.Names() {
			p, _ := want.Properties.Get(n)
			p.ClassOrigin = "CIM_Foo"
		}
		if diff := cmp.Diff(want, got, classCmpOpts); diff != "" {
			t.Errorf("stored class differs (-want +got):\n%s", diff)
		}
	})

	t.Run("must not remove the default namespace, empty or not", func(t *testing.T) {
		err := repo.RemoveNamespace("root/cimv2")
		require.ErrorIs(err, cim.ErrNamespaceNotEmptyError)

		require.NoError(repo.DeleteInstance("root/cimv2", path))
		require.NoError(repo.DeleteClass("root/cimv2", "CIM_Foo"))
		require.NoError(repo.DeleteQualifier("root/cimv2", "Key"))

		err = repo.RemoveNamespace("root/cimv2")
		require.ErrorIs(err, cim.ErrNamespaceNotEmptyError)
		require.Equal(cim.Status_NamespaceNotEmpty, cim.StatusOf(err))
	})
}

func Test_RepositoryNamespaces(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	t.Run("must be ok to add and validate namespaces", func(t *testing.T) {
		require.NoError(repo.AddNamespace("root/test"))
		require.True(repo.ValidateNamespace("root/test"))
		require.False(repo.ValidateNamespace("root/absent"))
		require.Equal([]string{testNS, "root/test"}, repo.Namespaces())
	})

	t.Run("must normalize names on the way in", func(t *testing.T) {
		require.NoError(repo.AddNamespace("//root/slashed//"))
		require.True(repo.ValidateNamespace("root/slashed"))
		require.True(repo.ValidateNamespace("/root/slashed/"))
	})

	t.Run("must be error to add a namespace twice", func(t *testing.T) {
		err := repo.AddNamespace("ROOT/Test")
		require.ErrorIs(err, cim.ErrAlreadyExistsError)
	})

	t.Run("must be error to add an all slashes name", func(t *testing.T) {
		require.ErrorIs(repo.AddNamespace("///"), cim.ErrInvalidParameterError)
	})

	t.Run("must be ok to remove an empty non default namespace", func(t *testing.T) {
		require.NoError(repo.RemoveNamespace("root/slashed"))
		require.False(repo.ValidateNamespace("root/slashed"))
	})

	t.Run("must be error to remove an unknown namespace", func(t *testing.T) {
		require.ErrorIs(repo.RemoveNamespace("root/absent"), cim.ErrNotFoundError)
	})

	t.Run("must be ok to switch the default namespace", func(t *testing.T) {
		require.NoError(repo.SetDefaultNamespace("root/test"))
		require.Equal("root/test", repo.DefaultNamespace())

		require.ErrorIs(repo.SetDefaultNamespace("root/absent"), cim.ErrInvalidNamespaceError)
		require.Equal("root/test", repo.DefaultNamespace())

		require.NoError(repo.SetDefaultNamespace(testNS))
	})
}

func Test_CreateClass(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	require.NoError(repo.CreateClass(testNS, fooClass()))

	t.Run("must be error on an unregistered namespace", func(t *testing.T) {
		err := repo.CreateClass("root/absent", fooClass())
		require.ErrorIs(err, cim.ErrInvalidNamespaceError)
	})

	t.Run("must be error without a class", func(t *testing.T) {
		require.ErrorIs(repo.CreateClass(testNS, nil), cim.ErrInvalidParameterError)
		require.ErrorIs(repo.CreateClass(testNS, cim.NewClass("", "")), cim.ErrInvalidParameterError)
	})

	t.Run("must be error on a missing superclass and must not store the class", func(t *testing.T) {
		err := repo.CreateClass(testNS, cim.NewClass("CIM_Orphan", "CIM_Absent"))
		require.ErrorIs(err, cim.ErrInvalidSuperclassError)

		_, err = repo.GetClass(testNS, "CIM_Orphan", cimrepo.FullClassView())
		require.ErrorIs(err, cim.ErrNotFoundError, "no partial write")
	})

	t.Run("must translate a dangling reference into invalid parameter", func(t *testing.T) {
		cls := cim.NewClass("CIM_Link", "").
			AddProperty(
				keyProperty("InstanceID"),
				cim.NewRefProperty("Target", "CIM_Absent"),
			)
		err := repo.CreateClass(testNS, cls)
		require.ErrorIs(err, cim.ErrInvalidParameterError)
		require.NotErrorIs(err, cim.ErrNotFoundError)
	})

	t.Run("must be ok to reference the class itself", func(t *testing.T) {
		cls := cim.NewClass("CIM_Node", "").
			AddProperty(
				keyProperty("InstanceID"),
				cim.NewRefProperty("Parent", "CIM_Node"),
			)
		require.NoError(repo.CreateClass(testNS, cls))
	})

	t.Run("must check EmbeddedInstance qualifier targets", func(t *testing.T) {
		embedded := func(class string) *cim.Class {
			return cim.NewClass("CIM_Holder", "").
				AddProperty(
					keyProperty("InstanceID"),
					cim.NewProperty("Setting", cim.Type_string,
						cim.NewQualifier("EmbeddedInstance", cim.Type_string, class)),
				)
		}

		require.ErrorIs(repo.CreateClass(testNS, embedded("CIM_Absent")), cim.ErrInvalidParameterError)
		require.ErrorIs(repo.CreateClass(testNS, embedded("")), cim.ErrInvalidParameterError)
		require.NoError(repo.CreateClass(testNS, embedded("CIM_Foo")))
	})

	t.Run("must check reference parameter targets", func(t *testing.T) {
		cls := cim.NewClass("CIM_Svc", "").
			AddProperty(keyProperty("InstanceID")).
			AddMethod(cim.NewMethod("Attach", cim.Type_uint32).
				AddParameter(cim.NewRefParameter("Device", "CIM_Absent")))
		require.ErrorIs(repo.CreateClass(testNS, cls), cim.ErrInvalidParameterError)
	})

	t.Run("must overwrite an existing class idempotently", func(t *testing.T) {
		repl := cim.NewClass("CIM_Foo", "").
			AddProperty(
				keyProperty("InstanceID"),
				cim.NewProperty("Status", cim.Type_uint16),
			)
		require.NoError(repo.CreateClass(testNS, repl))

		got, err := repo.GetClass(testNS, "CIM_Foo", cimrepo.FullClassView())
		require.NoError(err)
		require.Equal([]string{"InstanceID", "Status"}, got.Properties.Names())
	})

	t.Run("must reject inheritance cycles", func(t *testing.T) {
		err := repo.CreateClass(testNS, cim.NewClass("CIM_Self", "CIM_SELF"))
		require.ErrorIs(err, cim.ErrInvalidSuperclassError)

		require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_A", "")))
		require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_B", "CIM_A")))
		err = repo.CreateClass(testNS, cim.NewClass("CIM_A", "CIM_B"))
		require.ErrorIs(err, cim.ErrInvalidSuperclassError)
	})

	t.Run("must not modify the supplied class", func(t *testing.T) {
		cls := cim.NewClass("CIM_Pristine", "").AddProperty(keyProperty("InstanceID"))
		require.NoError(repo.CreateClass(testNS, cls))
		p, _ := cls.Properties.Get("InstanceID")
		require.Empty(p.ClassOrigin)
		require.False(p.Propagated)
	})
}

func Test_GetClass(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Base", "").
		AddProperty(
			keyProperty("InstanceID"),
			cim.NewProperty("P1", cim.Type_string, cim.NewQualifier("MaxLen", cim.Type_uint32, uint32(16))),
		).
		AddMethod(cim.NewMethod("M1", cim.Type_uint32))))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Sub", "CIM_Base").
		AddProperty(cim.NewProperty("P2", cim.Type_uint32))))

	t.Run("must be error for an unknown class", func(t *testing.T) {
		_, err := repo.GetClass(testNS, "CIM_Absent", cimrepo.FullClassView())
		require.ErrorIs(err, cim.ErrNotFoundError)
		require.Equal(cim.Status_NotFound, cim.StatusOf(err))
	})

	t.Run("must merge inherited members into the full view", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "CIM_Sub", cimrepo.FullClassView())
		require.NoError(err)
		require.Equal([]string{"P2", "InstanceID", "P1"}, got.Properties.Names())

		p1, _ := got.Properties.Get("P1")
		require.True(p1.Propagated)
		require.Equal("CIM_Base", p1.ClassOrigin)

		m1, _ := got.Methods.Get("M1")
		require.True(m1.Propagated)
		require.Equal("CIM_Base", m1.ClassOrigin)
	})

	t.Run("must strip inherited members from the local only view", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "CIM_Sub",
			cimrepo.GetClassOpts{LocalOnly: true, IncludeQualifiers: true, IncludeClassOrigin: true})
		require.NoError(err)
		require.Equal([]string{"P2"}, got.Properties.Names())
		require.Empty(got.Methods.Names())
	})

	t.Run("must strip qualifiers unless asked for", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "CIM_Base", cimrepo.GetClassOpts{IncludeClassOrigin: true})
		require.NoError(err)
		p1, _ := got.Properties.Get("P1")
		require.Zero(p1.Qualifiers.Len())
		id, _ := got.Properties.Get("InstanceID")
		require.False(id.IsKey(), "the Key qualifier is stripped with the rest")
	})

	t.Run("must strip class origins unless asked for", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "CIM_Sub", cimrepo.GetClassOpts{IncludeQualifiers: true})
		require.NoError(err)
		p1, _ := got.Properties.Get("P1")
		require.Empty(p1.ClassOrigin)
		require.True(p1.Propagated, "propagated tags survive origin stripping")
	})

	t.Run("must find classes case insensitively", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "cim_base", cimrepo.FullClassView())
		require.NoError(err)
		require.Equal("CIM_Base", got.ClassName, "stored spelling wins")
	})

	t.Run("repeated full views must not grow the stored class", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := repo.GetClass(testNS, "CIM_Sub", cimrepo.FullClassView())
			require.NoError(err)
		}
		got, err := repo.GetClass(testNS, "CIM_Sub", cimrepo.GetClassOpts{LocalOnly: true})
		require.NoError(err)
		require.Equal([]string{"P2"}, got.Properties.Names())
	})

	t.Run("must return detached copies", func(t *testing.T) {
		got, err := repo.GetClass(testNS, "CIM_Base", cimrepo.FullClassView())
		require.NoError(err)
		got.Properties.Remove("P1")
		got.ClassName = "CIM_Mangled"

		again, err := repo.GetClass(testNS, "CIM_Base", cimrepo.FullClassView())
		require.NoError(err)
		require.True(again.Properties.Has("P1"))
		require.Equal("CIM_Base", again.ClassName)
	})
}

func Test_DeleteClass(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	require.NoError(repo.CreateClass(testNS, fooClass().AddMethod(cim.NewMethod("Ping", cim.Type_uint32))))
	require.NoError(repo.RegisterMethodCallback(testNS, "CIM_Foo", "Ping",
		func(ns string, object *cim.Path, method string, in *cim.NocaseMap[cim.Value]) (cim.Value, *cim.NocaseMap[cim.Value], error) {
			return uint32(0), nil, nil
		}))

	t.Run("must be ok to delete a class", func(t *testing.T) {
		require.NoError(repo.DeleteClass(testNS, "cim_foo"))

		_, err := repo.GetClass(testNS, "CIM_Foo", cimrepo.FullClassView())
		require.ErrorIs(err, cim.ErrNotFoundError)

		names, err := repo.CompileOrderedClassNames(testNS)
		require.NoError(err)
		require.Empty(names)
	})

	t.Run("must be error to delete it twice", func(t *testing.T) {
		require.ErrorIs(repo.DeleteClass(testNS, "CIM_Foo"), cim.ErrNotFoundError)
	})

	t.Run("must drop method callbacks with the class", func(t *testing.T) {
		require.NoError(repo.CreateClass(testNS, fooClass().AddMethod(cim.NewMethod("Ping", cim.Type_uint32))))
		_, err := repo.MethodCallback(testNS, "CIM_Foo", "Ping")
		require.ErrorIs(err, cim.ErrNotFoundError)
	})
}

func Test_EnumerateClasses(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Base", "").AddProperty(keyProperty("InstanceID"))))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Mid", "CIM_Base")))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Leaf", "CIM_Mid")))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_Other", "")))

	enum := func(t *testing.T, class string, deep bool, want []string) {
		t.Helper()
		names, err := repo.EnumerateClassNames(testNS, class, deep)
		require.NoError(err)
		require.Equal(want, names)
	}

	t.Run("must list every class deep from the root", func(t *testing.T) {
		enum(t, "", true, []string{"CIM_Base", "CIM_Mid", "CIM_Leaf", "CIM_Other"})
	})

	t.Run("must list root classes shallow from the root", func(t *testing.T) {
		enum(t, "", false, []string{"CIM_Base", "CIM_Other"})
	})

	t.Run("must list direct subclasses shallow", func(t *testing.T) {
		enum(t, "CIM_Base", false, []string{"CIM_Mid"})
		enum(t, "cim_mid", false, []string{"CIM_Leaf"})
		enum(t, "CIM_Leaf", false, []string{})
	})

	t.Run("must list all descendants deep", func(t *testing.T) {
		enum(t, "CIM_Base", true, []string{"CIM_Mid", "CIM_Leaf"})
	})

	t.Run("must be error for an unknown start class", func(t *testing.T) {
		_, err := repo.EnumerateClassNames(testNS, "CIM_Absent", true)
		require.ErrorIs(err, cim.ErrNotFoundError)
	})

	t.Run("must return class bodies per options", func(t *testing.T) {
		classes, err := repo.EnumerateClasses(testNS, "CIM_Base", true, cimrepo.GetClassOpts{LocalOnly: true})
		require.NoError(err)
		require.Len(classes, 2)
		require.Equal("CIM_Mid", classes[0].ClassName)
		require.Equal("CIM_Leaf", classes[1].ClassName)
		require.Empty(classes[0].Properties.Names(), "inherited key stays behind in the local only view")
	})
}

func Test_CompileOrder(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	order := func(t *testing.T, want []string) {
		t.Helper()
		names, err := repo.CompileOrderedClassNames(testNS)
		require.NoError(err)
		require.Equal(want, names)
	}

	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_A", "")))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_B", "CIM_A")))
	require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_C", "CIM_B")))
	order(t, []string{"CIM_A", "CIM_B", "CIM_C"})

	t.Run("overwrite must keep the original position", func(t *testing.T) {
		require.NoError(repo.CreateClass(testNS, cim.NewClass("cim_b", "CIM_A")))
		order(t, []string{"CIM_A", "CIM_B", "CIM_C"})
	})

	t.Run("delete must drop the entry, recreate appends", func(t *testing.T) {
		require.NoError(repo.DeleteClass(testNS, "CIM_B"))
		order(t, []string{"CIM_A", "CIM_C"})

		require.NoError(repo.CreateClass(testNS, cim.NewClass("CIM_B", "CIM_A")))
		order(t, []string{"CIM_A", "CIM_C", "CIM_B"})
	})

	t.Run("must be error on an unregistered namespace", func(t *testing.T) {
		_, err := repo.CompileOrderedClassNames("root/absent")
		require.ErrorIs(err, cim.ErrInvalidNamespaceError)
	})
}

func Test_Qualifiers(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	t.Run("must be ok to set and get a declaration", func(t *testing.T) {
		require.NoError(repo.SetQualifier(testNS,
			cim.NewQualifierDecl("Description", cim.Type_string, "", cim.Scope_Any)))

		qd, err := repo.GetQualifier(testNS, "DESCRIPTION")
		require.NoError(err)
		require.Equal("Description", qd.Name)
		require.Equal(cim.Scope_Any, qd.Scopes)
	})

	t.Run("must return detached copies", func(t *testing.T) {
		qd, err := repo.GetQualifier(testNS, "Description")
		require.NoError(err)
		qd.Scopes = cim.Scope_Class

		again, err := repo.GetQualifier(testNS, "Description")
		require.NoError(err)
		require.Equal(cim.Scope_Any, again.Scopes)
	})

	t.Run("must overwrite an existing declaration", func(t *testing.T) {
		require.NoError(repo.SetQualifier(testNS,
			cim.NewQualifierDecl("Description", cim.Type_string, "n/a", cim.Scope_Any)))
		qd, err := repo.GetQualifier(testNS, "Description")
		require.NoError(err)
		require.Equal("n/a", qd.Value)
	})

	t.Run("must be error without a named declaration", func(t *testing.T) {
		require.ErrorIs(repo.SetQualifier(testNS, nil), cim.ErrInvalidParameterError)
		require.ErrorIs(repo.SetQualifier(testNS, &cim.QualifierDecl{}), cim.ErrInvalidParameterError)
	})

	t.Run("must enumerate declarations in declaration order", func(t *testing.T) {
		qq, err := repo.EnumerateQualifiers(testNS)
		require.NoError(err)
		require.Len(qq, 2)
		require.Equal("Key", qq[0].Name)
		require.Equal("Description", qq[1].Name)
	})

	t.Run("must be ok to delete a declaration", func(t *testing.T) {
		require.NoError(repo.DeleteQualifier(testNS, "description"))
		_, err := repo.GetQualifier(testNS, "Description")
		require.ErrorIs(err, cim.ErrNotFoundError)

		require.ErrorIs(repo.DeleteQualifier(testNS, "Description"), cim.ErrNotFoundError)
	})

	t.Run("must be error on an unregistered namespace", func(t *testing.T) {
		_, err := repo.GetQualifier("root/absent", "Key")
		require.ErrorIs(err, cim.ErrInvalidNamespaceError)
	})
}

func Test_RepositoryStatuses(t *testing.T) {
	require := require.New(t)
	repo := newTestRepo(t)

	_, err := repo.GetClass("root/absent", "CIM_Foo", cimrepo.FullClassView())
	require.Equal(cim.Status_InvalidNamespace, cim.StatusOf(err))

	_, err = repo.GetClass(testNS, "CIM_Absent", cimrepo.FullClassView())
	require.Equal(cim.Status_NotFound, cim.StatusOf(err))

	require.Equal(cim.Status_AlreadyExists, cim.StatusOf(repo.AddNamespace(testNS)))
	require.Equal(cim.Status_InvalidParameter, cim.StatusOf(repo.CreateClass(testNS, nil)))
	require.Equal(cim.Status_InvalidSuperclass,
		cim.StatusOf(repo.CreateClass(testNS, cim.NewClass("CIM_X", "CIM_Absent"))))
	require.Equal(cim.Status_NamespaceNotEmpty, cim.StatusOf(repo.RemoveNamespace(testNS)))
	require.Equal(cim.Status_OK, cim.StatusOf(nil))
}
