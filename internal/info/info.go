// Package info produces the FeatureServer metadata documents: rest info,
// server info, layer info and the layers list.
package info

import (
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
	"github.com/mohammed-shakir/geojson-featureserver/internal/renderer"
)

type Config struct {
	CurrentVersion  float64
	FullVersion     string
	OwningSystemURL string
}

func DefaultConfig() Config {
	return Config{CurrentVersion: 10.51, FullVersion: "10.5.1"}
}

type Producer struct {
	cfg Config
}

func New(cfg Config) *Producer {
	if cfg.CurrentVersion == 0 {
		cfg.CurrentVersion = DefaultConfig().CurrentVersion
	}
	if cfg.FullVersion == "" {
		cfg.FullVersion = DefaultConfig().FullVersion
	}
	return &Producer{cfg: cfg}
}

type SpatialReference struct {
	WKID       int `json:"wkid"`
	LatestWKID int `json:"latestWkid"`
}

var wgs84 = SpatialReference{WKID: 4326, LatestWKID: 4326}

type Extent struct {
	XMin             float64          `json:"xmin"`
	YMin             float64          `json:"ymin"`
	XMax             float64          `json:"xmax"`
	YMax             float64          `json:"ymax"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

func extentOf(src *geojson.FeatureCollection) Extent {
	b := src.Bounds()
	if b.Empty() {
		return Extent{XMin: -180, YMin: -90, XMax: 180, YMax: 90, SpatialReference: wgs84}
	}
	return Extent{XMin: b[0], YMin: b[1], XMax: b[2], YMax: b[3], SpatialReference: wgs84}
}

type AuthInfo struct {
	IsTokenBasedSecurity bool `json:"isTokenBasedSecurity"`
}

type RestInfo struct {
	CurrentVersion  float64  `json:"currentVersion"`
	FullVersion     string   `json:"fullVersion"`
	OwningSystemURL string   `json:"owningSystemUrl,omitempty"`
	AuthInfo        AuthInfo `json:"authInfo"`
}

func (p *Producer) RestInfo(_ *geojson.FeatureCollection) (any, error) {
	return RestInfo{
		CurrentVersion:  p.cfg.CurrentVersion,
		FullVersion:     p.cfg.FullVersion,
		OwningSystemURL: p.cfg.OwningSystemURL,
	}, nil
}

type LayerRef struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	ParentLayerID     int    `json:"parentLayerId"`
	DefaultVisibility bool   `json:"defaultVisibility"`
	SubLayerIDs       []int  `json:"subLayerIds"`
	MinScale          int    `json:"minScale"`
	MaxScale          int    `json:"maxScale"`
	GeometryType      string `json:"geometryType,omitempty"`
}

type ServerInfo struct {
	CurrentVersion        float64          `json:"currentVersion"`
	ServiceDescription    string           `json:"serviceDescription"`
	HasVersionedData      bool             `json:"hasVersionedData"`
	SupportedQueryFormats string           `json:"supportedQueryFormats"`
	MaxRecordCount        int              `json:"maxRecordCount"`
	Capabilities          string           `json:"capabilities"`
	Description           string           `json:"description"`
	CopyrightText         string           `json:"copyrightText"`
	SpatialReference      SpatialReference `json:"spatialReference"`
	InitialExtent         Extent           `json:"initialExtent"`
	FullExtent            Extent           `json:"fullExtent"`
	AllowGeometryUpdates  bool             `json:"allowGeometryUpdates"`
	Units                 string           `json:"units"`
	SyncEnabled           bool             `json:"syncEnabled"`
	Layers                []LayerRef       `json:"layers"`
	Tables                []LayerRef       `json:"tables"`
}

func (p *Producer) ServerInfo(src *geojson.FeatureCollection, routeParams map[string]string) (any, error) {
	meta := src.Meta()
	ext := extentOf(src)
	ref := LayerRef{
		ID:                0,
		Name:              layerName(src, routeParams),
		ParentLayerID:     -1,
		DefaultVisibility: true,
		GeometryType:      src.GeometryType(),
	}
	out := ServerInfo{
		CurrentVersion:        p.cfg.CurrentVersion,
		ServiceDescription:    meta.Description,
		SupportedQueryFormats: "JSON",
		MaxRecordCount:        maxRecordCount(meta),
		Capabilities:          "Query",
		Description:           meta.Description,
		SpatialReference:      wgs84,
		InitialExtent:         ext,
		FullExtent:            ext,
		Units:                 "esriDecimalDegrees",
		Layers:                []LayerRef{},
		Tables:                []LayerRef{},
	}
	if ref.GeometryType == "" {
		out.Tables = append(out.Tables, ref)
	} else {
		out.Layers = append(out.Layers, ref)
	}
	return out, nil
}

type DrawingInfo struct {
	Renderer     renderer.Renderer `json:"renderer"`
	Transparency int               `json:"transparency"`
	LabelingInfo any               `json:"labelingInfo"`
}

type AdvancedQueryCapabilities struct {
	SupportsPagination           bool `json:"supportsPagination"`
	SupportsOrderBy              bool `json:"supportsOrderBy"`
	SupportsQueryWithResultType  bool `json:"supportsQueryWithResultType"`
	SupportsReturningQueryExtent bool `json:"supportsReturningQueryExtent"`
}

type LayerInfo struct {
	CurrentVersion            float64                   `json:"currentVersion"`
	ID                        int                       `json:"id"`
	Name                      string                    `json:"name"`
	Type                      string                    `json:"type"`
	Description               string                    `json:"description"`
	GeometryType              string                    `json:"geometryType,omitempty"`
	CopyrightText             string                    `json:"copyrightText"`
	ParentLayer               any                       `json:"parentLayer"`
	SubLayers                 []LayerRef                `json:"subLayers"`
	MinScale                  int                       `json:"minScale"`
	MaxScale                  int                       `json:"maxScale"`
	DefaultVisibility         bool                      `json:"defaultVisibility"`
	Extent                    Extent                    `json:"extent"`
	HasAttachments            bool                      `json:"hasAttachments"`
	HTMLPopupType             string                    `json:"htmlPopupType"`
	DrawingInfo               *DrawingInfo              `json:"drawingInfo,omitempty"`
	DisplayField              string                    `json:"displayField"`
	TypeIDField               any                       `json:"typeIdField"`
	Fields                    []geojson.Field           `json:"fields"`
	Relationships             []any                     `json:"relationships"`
	CanModifyLayer            bool                      `json:"canModifyLayer"`
	CanScaleSymbols           bool                      `json:"canScaleSymbols"`
	HasLabels                 bool                      `json:"hasLabels"`
	Capabilities              string                    `json:"capabilities"`
	MaxRecordCount            int                       `json:"maxRecordCount"`
	SupportsStatistics        bool                      `json:"supportsStatistics"`
	SupportsAdvancedQueries   bool                      `json:"supportsAdvancedQueries"`
	SupportedQueryFormats     string                    `json:"supportedQueryFormats"`
	AdvancedQueryCapabilities AdvancedQueryCapabilities `json:"advancedQueryCapabilities"`
	ObjectIDField             string                    `json:"objectIdField"`
	GlobalIDField             string                    `json:"globalIdField"`
	Types                     []any                     `json:"types"`
	Templates                 []any                     `json:"templates"`
	HasZ                      bool                      `json:"hasZ"`
	HasM                      bool                      `json:"hasM"`
}

// LayerInfo describes layer 0, the only layer a GeoJSON source exposes.
func (p *Producer) LayerInfo(src *geojson.FeatureCollection, routeParams map[string]string) (any, error) {
	id, err := layerID(routeParams)
	if err != nil {
		return nil, err
	}
	return p.layer(src, routeParams, id), nil
}

type LayersInfo struct {
	Layers []LayerInfo `json:"layers"`
	Tables []LayerInfo `json:"tables"`
}

func (p *Producer) LayersInfo(src *geojson.FeatureCollection, _ params.Query) (any, error) {
	l := p.layer(src, nil, 0)
	out := LayersInfo{Layers: []LayerInfo{}, Tables: []LayerInfo{}}
	if l.Type == "Table" {
		out.Tables = append(out.Tables, l)
	} else {
		out.Layers = append(out.Layers, l)
	}
	return out, nil
}

func (p *Producer) layer(src *geojson.FeatureCollection, routeParams map[string]string, id int) LayerInfo {
	meta := src.Meta()
	fields := src.Fields()
	geomType := src.GeometryType()

	l := LayerInfo{
		CurrentVersion:          p.cfg.CurrentVersion,
		ID:                      id,
		Name:                    layerName(src, routeParams),
		Type:                    "Feature Layer",
		Description:             meta.Description,
		GeometryType:            geomType,
		SubLayers:               []LayerRef{},
		DefaultVisibility:       true,
		Extent:                  extentOf(src),
		HTMLPopupType:           "esriServerHTMLPopupTypeNone",
		DisplayField:            displayField(fields, src.OIDField()),
		Fields:                  fields,
		Relationships:           []any{},
		Capabilities:            "Query",
		MaxRecordCount:          maxRecordCount(meta),
		SupportsAdvancedQueries: true,
		SupportedQueryFormats:   "JSON",
		AdvancedQueryCapabilities: AdvancedQueryCapabilities{
			SupportsPagination: true,
			SupportsOrderBy:    true,
		},
		ObjectIDField: src.OIDField(),
		Types:         []any{},
		Templates:     []any{},
	}
	if geomType == "" {
		l.Type = "Table"
	} else {
		l.DrawingInfo = &DrawingInfo{Renderer: renderer.Default(geomType)}
	}
	return l
}

func layerID(routeParams map[string]string) (int, error) {
	raw := strings.TrimSpace(routeParams["layer"])
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id != 0 {
		return 0, errs.NotFound("Layer not found")
	}
	return id, nil
}

func layerName(src *geojson.FeatureCollection, routeParams map[string]string) string {
	if n := src.Meta().Name; n != "" {
		return n
	}
	if h := routeParams["host"]; h != "" {
		return h
	}
	return "Layer"
}

func maxRecordCount(meta geojson.Metadata) int {
	if meta.MaxRecordCount > 0 {
		return meta.MaxRecordCount
	}
	return params.DefaultLimit
}

func displayField(fields []geojson.Field, oid string) string {
	for _, f := range fields {
		if f.Type == geojson.FieldString {
			return f.Name
		}
	}
	return oid
}
