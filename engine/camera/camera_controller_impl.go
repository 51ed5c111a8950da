package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

type orbitPose struct {
	target    common.Vec3
	radius    float32
	azimuth   float32
	elevation float32
}

type cameraControllerImpl struct {
	mu *sync.Mutex

	position common.Vec3
	pose     orbitPose
	home     orbitPose

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller looking at the origin from slightly above.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},
		pose: orbitPose{
			radius:    5,
			elevation: math32.Pi / 9,
		},
		minRadius:    0.05,
		maxRadius:    5000,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		orbitSpeed:   0.04,
		zoomSpeed:    0.1,
		panSpeed:     0.02,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clampPose()
	cc.home = cc.pose
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the eye from the pivot and spherical offset. Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	sinElev, cosElev := math32.Sincos(cc.pose.elevation)
	sinAzim, cosAzim := math32.Sincos(cc.pose.azimuth)
	cc.position = cc.pose.target.Add(common.Vec3{
		cc.pose.radius * cosElev * sinAzim,
		cc.pose.radius * sinElev,
		cc.pose.radius * cosElev * cosAzim,
	})
}

// clampPose keeps radius and elevation inside their bounds. Caller must hold the mutex.
func (cc *cameraControllerImpl) clampPose() {
	cc.pose.radius = common.Clamp(cc.pose.radius, cc.minRadius, cc.maxRadius)
	cc.pose.elevation = common.Clamp(cc.pose.elevation, cc.minElevation, cc.maxElevation)
}

// localAxes returns the right and up axes matching the LookAt basis. Both are zero when eye
// and pivot coincide. Caller must hold the mutex.
func (cc *cameraControllerImpl) localAxes() (right, up common.Vec3) {
	back := cc.position.Sub(cc.pose.target)
	bl := back.Length()
	if bl < 1e-8 {
		return
	}
	back = back.Scale(1 / bl)

	// cross((0,1,0), back)
	right = common.Vec3{back[2], 0, -back[0]}
	rl := right.Length()
	if rl < 1e-8 {
		return common.Vec3{}, common.Vec3{}
	}
	right = right.Scale(1 / rl)
	up = common.Vec3{
		back[1]*right[2] - back[2]*right[1],
		back[2]*right[0] - back[0]*right[2],
		back[0]*right[1] - back[1]*right[0],
	}
	return right, up
}

func (cc *cameraControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pose.target
}

func (cc *cameraControllerImpl) Frame(center common.Vec3, distance float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if distance < cc.minRadius {
		cc.minRadius = distance * 0.5
	}
	if distance > cc.maxRadius {
		cc.maxRadius = distance * 4
	}
	cc.pose.target = center
	cc.pose.radius = distance
	cc.clampPose()
	cc.home = cc.pose
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Home() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pose = cc.home
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pose.radius -= delta * cc.zoomSpeed * cc.pose.radius
	cc.clampPose()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pose.azimuth += dAzimuth
	cc.pose.elevation += dElevation
	cc.clampPose()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) OrbitLeft()  { cc.orbit(-cc.orbitSpeed, 0) }
func (cc *cameraControllerImpl) OrbitRight() { cc.orbit(cc.orbitSpeed, 0) }
func (cc *cameraControllerImpl) OrbitUp()    { cc.orbit(0, cc.orbitSpeed) }
func (cc *cameraControllerImpl) OrbitDown()  { cc.orbit(0, -cc.orbitSpeed) }

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pose.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pose.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pose.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pose.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pose.elevation = elevation
	cc.clampPose()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, _ := cc.localAxes()
	cc.shift(right.Scale(delta * cc.panSpeed * cc.pose.radius))
}

func (cc *cameraControllerImpl) PanUp(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, up := cc.localAxes()
	cc.shift(up.Scale(delta * cc.panSpeed * cc.pose.radius))
}

// shift translates eye and pivot together. Caller must hold the mutex.
func (cc *cameraControllerImpl) shift(offset common.Vec3) {
	cc.pose.target = cc.pose.target.Add(offset)
	cc.position = cc.position.Add(offset)
}
