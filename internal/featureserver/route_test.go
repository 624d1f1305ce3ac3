package featureserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
)

func TestClassify_Paths(t *testing.T) {
	cases := []struct {
		path  string
		op    Operation
		layer string
	}{
		{"/rest/info", OpRestInfo, ""},
		{"/trees/REST/INFO", OpRestInfo, ""},
		{"/trees/FeatureServer", OpServerInfo, ""},
		{"/trees/featureserver/info", OpServerInfo, ""},
		{"/trees/FeatureServer/", OpServerInfo, ""},
		{"/trees/FeatureServer/?f=json", OpServerInfo, ""},
		{"/trees/FeatureServer/3", OpLayerInfo, "3"},
		{"/trees/FeatureServer/12/info", OpLayerInfo, "12"},
		{"/trees/FeatureServer/0/", OpLayerInfo, "0"},
		{"/trees/FeatureServer/layers", OpLayersInfo, ""},
		{"/trees/FeatureServer/LAYERS", OpLayersInfo, ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			r, err := Classify(tc.path, "")
			require.NoError(t, err)
			assert.Equal(t, tc.op, r.Op)
			assert.Equal(t, tc.layer, r.Layer)
		})
	}
}

func TestClassify_MethodHintShortCircuits(t *testing.T) {
	r, err := Classify("/rest/info", MethodQuery)
	require.NoError(t, err)
	assert.Equal(t, OpQuery, r.Op)

	r, err = Classify("/unrelated/path", MethodGenerateRenderer)
	require.NoError(t, err)
	assert.Equal(t, OpGenerateRenderer, r.Op)
}

func TestClassify_UnknownMethodHintFallsBackToPath(t *testing.T) {
	r, err := Classify("/trees/FeatureServer/0/info", "info")
	require.NoError(t, err)
	assert.Equal(t, OpLayerInfo, r.Op)
}

func TestClassify_Failures(t *testing.T) {
	_, err := Classify("/trees/FeatureServer/banana", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMethodNotSupported))

	_, err = Classify("/trees/FeatureServer/0/query", "")
	assert.True(t, errors.Is(err, errs.ErrMethodNotSupported))

	_, err = Classify("/unrelated/path", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.False(t, errors.Is(err, errs.ErrMethodNotSupported))
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "layers_info", OpLayersInfo.String())
	assert.Equal(t, "unknown", Operation(99).String())
}
