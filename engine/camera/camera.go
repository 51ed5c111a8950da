package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// fitMargin leaves some room around framed content.
const fitMargin float32 = 1.15

type cameraImpl struct {
	mu *sync.Mutex

	up common.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewport [2]float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	controller CameraController
}

// Camera holds perspective settings and computes view/projection matrices from an attached
// CameraController each frame via Update.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view (column-major).
	//
	// Returns:
	//   - [16]float32: the combined matrix
	ViewProjectionMatrix() [16]float32

	// Uniform returns the GPU camera block for the current frame.
	//
	// Returns:
	//   - GPUCameraUniform: view, projection and viewport size
	Uniform() GPUCameraUniform

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update re-reads the controller and recomputes matrices. Without a controller it does nothing.
	Update()

	// Resize records the viewport size and derives the aspect ratio from it. Zero sizes are ignored.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	Resize(width, height int)

	// FitTo frames the given content: the controller pivot moves to its center and the orbit
	// radius becomes the distance at which its bounding sphere fills the view. Near and far
	// planes follow the new distance. Zero FitData is ignored.
	//
	// Parameters:
	//   - fit: the framing target
	FitTo(fit common.FitData)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with a 45 degree vertical field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		up:       common.Vec3{0, 1, 0},
		fov:      45 * math32.Pi / 180,
		aspect:   1,
		near:     0.01,
		far:      1000,
		viewport: [2]float32{1, 1},
	}
	common.Identity(c.viewMatrix[:])
	common.Identity(c.projectionMatrix[:])
	common.Identity(c.viewProjectionMatrix[:])
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		View:       c.viewMatrix,
		Projection: c.projectionMatrix,
		Viewport:   c.viewport,
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = [2]float32{float32(width), float32(height)}
	c.aspect = float32(width) / float32(height)
	c.updateMatrices()
}

func (c *cameraImpl) FitTo(fit common.FitData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil || fit.Radius <= 0 {
		return
	}

	// The narrower of the two view angles decides the distance.
	half := c.fov / 2
	if c.aspect < 1 {
		half = math32.Atan(math32.Tan(half) * c.aspect)
	}
	distance := fit.Radius / math32.Sin(half) * fitMargin

	c.controller.Frame(fit.Center, distance)
	c.near = math32.Max(distance-fit.Radius*2, distance*1e-3)
	c.far = distance + fit.Radius*4
	c.updateMatrices()
}

// updateMatrices recalculates view, projection and view-projection from the controller.
// It is a no-op without a controller. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller == nil {
		return
	}
	common.LookAt(c.viewMatrix[:], c.controller.Position(), c.controller.Target(), c.up)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
