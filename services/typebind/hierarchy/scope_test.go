// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_NameResolutionOrder(t *testing.T) {
	lib := parse(t, "lib/Lib.java", `package lib;
public class Thing {}
public class Other {}
`)
	local := parse(t, "app/Thing.java", `package app;
public class Thing {}
public class Helper {}
`)
	app := parse(t, "app/App.java", `package app;

import lib.Other;
import lib.*;

public class App<Thing> {
    public static class Helper {}

    class UsesParam extends java.util.ArrayList<Thing> {}
    class UsesMember extends Helper {}
    class UsesSinglePackage extends Other {}
    class UsesOwnPackageBeforeOnDemand implements Comparable<app.Thing> {}
    class Nested {
        class Deeper extends Nested {}
    }
}

class SamePackage extends Thing {}
class Outer {
    class Inner<String> extends java.util.ArrayList<String> {}
}
`)
	res := build(t, lib, local, app)
	u := res.Universe

	super := func(name string) string {
		return u.Supertype(mustLookup(t, u, name)).String()
	}

	assert.Equal(t, "java.util.ArrayList<Thing>", super("app.App.UsesParam"), "type parameter shadows classes")
	assert.Equal(t, "app.App.Helper", super("app.App.UsesMember"), "member type beats same package")
	assert.Equal(t, "lib.Other", super("app.App.UsesSinglePackage"))
	assert.Equal(t, "app.App.Nested", super("app.App.Nested.Deeper"))
	assert.Equal(t, "app.Thing", super("app.SamePackage"), "same package beats on-demand import")
	assert.Equal(t, "java.util.ArrayList<String>", super("app.Outer.Inner"), "type parameter shadows java.lang")
	assert.Empty(t, res.Externals)
}
