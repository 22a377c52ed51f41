package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuildInfo_ReturnsGoVersionAndDependencies(t *testing.T) {
	info := GetBuildInfo()
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.MainModule)
}

func TestGetBuildInfo_DependenciesAreSortedByPath(t *testing.T) {
	info := GetBuildInfo()
	for i := 1; i < len(info.Dependencies); i++ {
		assert.LessOrEqual(t, info.Dependencies[i-1].Path, info.Dependencies[i].Path)
	}
}

func TestGetModuleVersion_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, GetModuleVersion())
}

func TestGetDependency_UnknownModuleReturnsNil(t *testing.T) {
	assert.Nil(t, GetDependency("example.com/definitely/not/a/real/module"))
}
